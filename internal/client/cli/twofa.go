package cli

import (
	"context"
	"fmt"
)

// EnableTwoFactor walks the enrollment: fetch provisioning material,
// show the secret and otpauth URL (rendered as a QR code by richer
// shells), then confirm with a code from the authenticator.
func (a *App) EnableTwoFactor(ctx context.Context) error {
	p, err := a.session.EnableTwoFactor(ctx)
	if err != nil {
		a.renderError(err)
		return nil
	}

	fmt.Fprintln(a.out, "Scan this in your authenticator app:")
	fmt.Fprintf(a.out, "  secret: %s\n", p.Secret)
	fmt.Fprintf(a.out, "  url:    %s\n", p.OTPAuthURL)

	code, err := getSimpleText(a.reader, "Enter the 6-digit code to confirm (empty to cancel)", a.out)
	if err != nil {
		return err
	}
	if code == "" {
		fmt.Fprintln(a.out, "Two-factor setup cancelled; nothing was enabled.")
		return nil
	}

	if err := a.session.ConfirmTwoFactor(ctx, code); err != nil {
		a.renderError(err)
		return nil
	}
	fmt.Fprintln(a.out, "Two-factor authentication is now enabled.")
	return nil
}

// DisableTwoFactor turns 2FA off for the current account.
func (a *App) DisableTwoFactor(ctx context.Context) error {
	if err := a.session.DisableTwoFactor(ctx); err != nil {
		a.renderError(err)
		return nil
	}
	fmt.Fprintln(a.out, "Two-factor authentication is now disabled.")
	return nil
}
