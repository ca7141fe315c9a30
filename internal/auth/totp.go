// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package auth

import (
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret provisions a new TOTP secret for an account and
// returns the base32 secret plus the otpauth:// URI that authenticator
// apps consume as a QR code.
func GenerateTOTPSecret(issuer, email string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTOTP checks a 6-digit code against the stored secret. The
// library tolerates one 30-second step of clock skew.
func VerifyTOTP(code, secret string) bool {
	return totp.Validate(code, secret)
}
