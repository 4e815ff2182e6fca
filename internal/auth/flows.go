package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"castive/infrastructure"
	"castive/internal/email"
	"castive/internal/sessions"
	"castive/internal/user"
	"castive/pkg/jwt"
)

// Flows drives the email-verification and password-reset token lifecycles.
// Verification tokens are not ledger-tracked; the verified flag is their
// replay guard. Reset tokens are single-use via the ledger.
type Flows struct {
	codec   *jwt.Codec
	ledger  *sessions.Ledger
	manager *sessions.Manager
	users   user.Repository
	sender  *email.Sender
	logger  *zap.Logger
}

func NewFlows(codec *jwt.Codec, ledger *sessions.Ledger, manager *sessions.Manager, users user.Repository, sender *email.Sender, logger *zap.Logger) *Flows {
	return &Flows{
		codec:   codec,
		ledger:  ledger,
		manager: manager,
		users:   users,
		sender:  sender,
		logger:  logger,
	}
}

// RequestVerification mails a fresh verification link. Unknown and
// already-verified addresses are both rejected up front.
func (f *Flows) RequestVerification(ctx context.Context, emailAddr string) error {
	u, err := f.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return fmt.Errorf("email is not registered: %w", infrastructure.ErrBadRequest)
	}
	if u.Email.Verified {
		return fmt.Errorf("email has already been verified: %w", infrastructure.ErrBadRequest)
	}

	return f.SendVerificationMail(emailAddr)
}

// SendVerificationMail signs a verification token for emailAddr and
// dispatches the mail in the background. Register and login reuse it for
// unverified accounts.
func (f *Flows) SendVerificationMail(emailAddr string) error {
	token, err := f.codec.Sign(jwt.KindEmailVerify, emailAddr)
	if err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}

	go func() {
		if err := f.sender.SendVerificationMail(emailAddr, token); err != nil {
			f.logger.Warn("verification mail failed", zap.Error(err))
		}
	}()
	return nil
}

// ConfirmVerification flips the verified flag for the token's audience.
// A second confirmation for the same address fails; the flag only moves one
// way.
func (f *Flows) ConfirmVerification(ctx context.Context, token string) (string, error) {
	claims, err := f.codec.Verify(jwt.KindEmailVerify, token, false)
	if err != nil {
		return "", infrastructure.ErrUnauthorized
	}

	u, err := f.users.GetByEmail(ctx, claims.Audience)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", infrastructure.ErrBadRequest)
	}
	if u.Email.Verified {
		return "", fmt.Errorf("email has already been verified: %w", infrastructure.ErrBadRequest)
	}

	u.Email.Verified = true
	if err := f.users.Update(ctx, u); err != nil {
		return "", fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	return claims.Audience, nil
}

// RequestReset signs a reset token, records it in the ledger so it can be
// consumed exactly once, and mails the link.
func (f *Flows) RequestReset(ctx context.Context, emailAddr string) error {
	if _, err := f.users.GetByEmail(ctx, emailAddr); err != nil {
		return fmt.Errorf("email is not registered: %w", infrastructure.ErrBadRequest)
	}

	token, err := f.codec.Sign(jwt.KindPasswordReset, emailAddr)
	if err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if err := f.ledger.PutReset(ctx, token, f.codec.TTL(jwt.KindPasswordReset)); err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}

	go func() {
		if err := f.sender.SendResetMail(emailAddr, token); err != nil {
			f.logger.Warn("reset mail failed", zap.Error(err))
		}
	}()
	return nil
}

// ConfirmReset consumes a reset token and updates the credential.
//
// The ledger entry is deleted as soon as the token and account check out,
// before the password is touched: if anything later fails the token is
// burnt, never left behind usable. A reset also proves mailbox control, so
// the address is marked verified, and every session is revoked afterwards.
func (f *Flows) ConfirmReset(ctx context.Context, token, newPassword string) error {
	// Unlisted means used or forged; a valid signature alone is not enough.
	exists, err := f.ledger.HasReset(ctx, token)
	if err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if !exists {
		return infrastructure.ErrUnauthorized
	}

	claims, err := f.codec.Verify(jwt.KindPasswordReset, token, false)
	if err != nil {
		return infrastructure.ErrUnauthorized
	}

	u, err := f.users.GetByEmail(ctx, claims.Audience)
	if err != nil {
		return fmt.Errorf("user not found: %w", infrastructure.ErrBadRequest)
	}

	// The delete reports whether this call consumed the entry, so two
	// concurrent confirmations of the same token cannot both proceed.
	taken, err := f.ledger.ConsumeReset(ctx, token)
	if err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if !taken {
		return infrastructure.ErrUnauthorized
	}

	if u.CheckPassword(newPassword) {
		return fmt.Errorf("new password cannot be same as the old one: %w", infrastructure.ErrBadRequest)
	}

	if err := u.SetPassword(newPassword); err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	u.Email.Verified = true
	if err := f.users.Update(ctx, u); err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}

	// Force a re-login everywhere with the new credential.
	return f.manager.LogoutAll(ctx, u.ID.String())
}
