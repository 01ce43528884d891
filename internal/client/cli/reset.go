package cli

import (
	"context"
	"fmt"

	"github.com/mbelkin/authfront/internal/client/auth"
)

// ForgotPassword requests a reset delivery for an email or phone.
func (a *App) ForgotPassword(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter the email or phone of your account", a.out)
	if err != nil {
		return err
	}

	in := auth.ResetRequestInput{}
	if looksLikePhone(identifier) {
		in.Phone = identifier
	} else {
		in.Email = identifier
	}

	delivery, err := a.session.RequestPasswordReset(ctx, in)
	if err != nil {
		a.renderError(err)
		return nil
	}

	fmt.Fprintln(a.out, delivery.Message)
	if delivery.DebugCode != "" {
		// Non-production backends echo the code instead of delivering it.
		fmt.Fprintf(a.out, "Reset code (dev): %s\n", delivery.DebugCode)
	}
	return nil
}

// ResetPassword confirms a reset with the delivered code and a new
// password.
func (a *App) ResetPassword(ctx context.Context) error {
	var in auth.ResetInput
	var err error

	if in.Identifier, err = getSimpleText(a.reader, "Enter the email or phone of your account", a.out); err != nil {
		return err
	}
	if in.Code, err = getSimpleText(a.reader, "Enter the reset code you received", a.out); err != nil {
		return err
	}
	if in.Password, err = getPassword(a.out, "Enter new password"); err != nil {
		return err
	}
	if in.PasswordConfirmation, err = getPassword(a.out, "Confirm new password"); err != nil {
		return err
	}

	msg, err := a.session.ResetPassword(ctx, in)
	if err != nil {
		a.renderError(err)
		return nil
	}

	fmt.Fprintln(a.out, msg)
	return nil
}

// looksLikePhone treats identifiers that start with '+' or consist only
// of digits as phone numbers; the backend resolves either form anyway,
// this just picks the right request field.
func looksLikePhone(identifier string) bool {
	if identifier == "" {
		return false
	}
	for i, r := range identifier {
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
