package auth

import (
	"github.com/google/wire"

	"castive/config"
	"castive/pkg/jwt"
)

// ProvideCodec is a Wire provider function that builds the token codec from
// the per-kind secrets and TTLs.
func ProvideCodec(cfg *config.Config) *jwt.Codec {
	return jwt.NewCodec(
		cfg.JWTIssuer,
		cfg.AccessSecret, cfg.RefreshSecret, cfg.EmailSecret, cfg.ResetSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.ResetTokenTTL,
	)
}

var Set = wire.NewSet(
	ProvideCodec,
	NewFlows,
	NewGate,
	NewHandler,
)
