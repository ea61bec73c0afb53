package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spcfox/sharetext/models"
	"github.com/spcfox/sharetext/store"
)

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CreateToken issues a signed token for the account. The token carries the
// account id and the account's current salt; no record of it is kept
// anywhere. Rotating the salt is how every outstanding token for an
// account is invalidated at once.
func (s *Service) CreateToken(account models.Account) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(account.Id, 10),
		"slt": account.Salt,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("token signing failed: %w", err)
	}

	return signedToken, nil
}

// parseToken verifies the signature and extracts the account id and salt
// claims. Every structural or cryptographic failure collapses into
// ErrInvalidToken.
func (s *Service) parseToken(tokenString string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	accountId, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: malformed sub claim", ErrInvalidToken)
	}

	salt, ok := claims["slt"].(string)
	if !ok {
		return 0, "", fmt.Errorf("%w: missing slt claim", ErrInvalidToken)
	}

	return accountId, salt, nil
}

// AuthenticateToken resolves a token to its account. A token is accepted
// iff the signature verifies and its embedded salt matches the account's
// current salt; a salt mismatch means the token was issued before the last
// revocation.
func (s *Service) AuthenticateToken(ctx context.Context, tokenString string) (models.Account, error) {
	if len(tokenString) == 0 {
		return models.Account{}, fmt.Errorf("%w: token not provided", ErrInvalidToken)
	}

	accountId, salt, err := s.parseToken(tokenString)
	if err != nil {
		return models.Account{}, err
	}

	account, err := s.Store.GetAccount(ctx, accountId)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.Account{}, fmt.Errorf("%w: unknown account", ErrInvalidToken)
		}
		return models.Account{}, fmt.Errorf("account lookup failed: %w", err)
	}

	if account.Salt != salt {
		return models.Account{}, fmt.Errorf("%w: stale salt", ErrInvalidToken)
	}

	return account, nil
}

func (s *Service) generateSalt() (string, error) {
	// Rejection sampling keeps the alphabet distribution uniform.
	unbiasedMax := byte(256 / len(saltAlphabet) * len(saltAlphabet))

	out := make([]byte, 0, s.Limits.SaltLength)
	buf := make([]byte, s.Limits.SaltLength*2)
	for len(out) < s.Limits.SaltLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("salt generation failed: %w", err)
		}
		for _, b := range buf {
			if b >= unbiasedMax {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
			if len(out) == s.Limits.SaltLength {
				break
			}
		}
	}

	return string(out), nil
}

const maxRotateAttempts = 5

// rotateSalt replaces the account's salt with a fresh random one,
// retrying generation until the draw differs from the current salt and
// retrying the store CAS if a concurrent rotation got there first.
func (s *Service) rotateSalt(ctx context.Context, account models.Account) (models.Account, error) {
	for attempt := 0; attempt < maxRotateAttempts; attempt++ {
		newSalt, err := s.generateSalt()
		if err != nil {
			return models.Account{}, err
		}
		if newSalt == account.Salt {
			continue
		}

		updated, err := s.Store.UpdateAccountSalt(ctx, account.Id, account.Salt, newSalt)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, store.ErrConditionFailed) {
			// Lost a race with another rotation; reload and try again.
			account, err = s.Store.GetAccount(ctx, account.Id)
			if err != nil {
				if errors.Is(err, store.ErrItemNotFound) {
					return models.Account{}, fmt.Errorf("%w: account removed", ErrInvalidToken)
				}
				return models.Account{}, fmt.Errorf("account reload failed: %w", err)
			}
			continue
		}
		if errors.Is(err, store.ErrItemNotFound) {
			return models.Account{}, fmt.Errorf("%w: account removed", ErrInvalidToken)
		}
		return models.Account{}, fmt.Errorf("salt update failed: %w", err)
	}

	return models.Account{}, errors.New("salt rotation did not converge")
}
