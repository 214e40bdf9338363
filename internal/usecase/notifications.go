package usecase

import (
	"fmt"
	"time"
)

const (
	resetCodeSubject     = "Your Password Reset Code"
	securityAlertSubject = "DeteXTB Security Alert"

	// passwordResetNotice is queued on the session for the login surface
	// after a completed reset.
	passwordResetNotice = "Password updated successfully! You can now login with your new password."
)

func resetCodeBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(`Hello,

We received a request to reset your password for DeteXTB.
Your verification code is: %s

This code will expire in %d minutes.

If you didn't request this, please ignore this email.

The DeteXTB Team`, code, int(ttl.Minutes()))
}

func securityAlertBody(username string, lockDuration time.Duration) string {
	return fmt.Sprintf(`Hello %s,

There have been multiple failed login attempts to your DeteXTB account.
Your account is temporarily locked for %d minutes for security reasons.

If this wasn't you, please change your password immediately.
Otherwise, you can ignore this email and try logging in again after the lock period.

The DeteXTB Team`, username, int(lockDuration.Minutes()))
}
