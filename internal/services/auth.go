package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/ctxutil"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

// Challenge is the message a wallet must personal_sign to open a session.
type Challenge struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type Session struct {
	Address   string    `json:"address"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService interface {
	IssueNonce(ctx context.Context, address string) (*Challenge, error)
	Verify(ctx context.Context, address, signature string) (*Session, error)
	ParseSession(ctx context.Context, token string) (*ctxutil.RequestData, error)
	SessionTTL() time.Duration
}

type authService struct {
	log        *logger.Logger
	nonces     redisx.NonceStore
	jwtSecret  []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAuthService(log *logger.Logger, nonces redisx.NonceStore, jwtSecretKey string, sessionTTL time.Duration) AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &authService{
		log:        log.With("service", "AuthService"),
		nonces:     nonces,
		jwtSecret:  []byte(jwtSecretKey),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SignInMessage is the exact text a wallet signs for the given nonce.
func SignInMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to DAE\nAddress: %s\nNonce: %s", strings.ToLower(address), nonce)
}

func (s *authService) SessionTTL() time.Duration { return s.sessionTTL }

func (s *authService) IssueNonce(ctx context.Context, address string) (*Challenge, error) {
	addr, err := parseAddress("address", address)
	if err != nil {
		return nil, err
	}
	nonce := uuid.NewString()
	if err := s.nonces.Issue(ctx, lower(addr), nonce); err != nil {
		return nil, fmt.Errorf("store nonce: %w", err)
	}
	return &Challenge{Address: lower(addr), Nonce: nonce, Message: SignInMessage(lower(addr), nonce)}, nil
}

func (s *authService) Verify(ctx context.Context, address, signature string) (*Session, error) {
	addr, err := parseAddress("address", address)
	if err != nil {
		return nil, err
	}
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return nil, apierr.BadRequest("invalid_signature", "signature must be 65 hex-encoded bytes")
	}
	nonce, err := s.nonces.Get(ctx, lower(addr))
	if err != nil {
		if errors.Is(err, redisx.ErrNonceNotFound) {
			return nil, apierr.Unauthorized("sign-in nonce missing or expired")
		}
		return nil, fmt.Errorf("load nonce: %w", err)
	}

	// Wallets produce v in {27,28}; SigToPub wants {0,1}.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	hash := accounts.TextHash([]byte(SignInMessage(lower(addr), nonce)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil || crypto.PubkeyToAddress(*pub) != addr {
		s.log.For(ctx).Warn("signature does not match address", "user_address", lower(addr))
		return nil, apierr.Unauthorized("signature does not match address")
	}
	// Only a valid signature spends the nonce.
	consumed, err := s.nonces.Consume(ctx, lower(addr), nonce)
	if err != nil {
		return nil, fmt.Errorf("consume nonce: %w", err)
	}
	if !consumed {
		return nil, apierr.Unauthorized("sign-in nonce already used")
	}

	expiresAt := s.now().Add(s.sessionTTL)
	claims := jwt.MapClaims{
		"addr": lower(addr),
		"jti":  uuid.NewString(),
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	s.log.For(ctx).Info("session opened", "user_address", lower(addr))
	return &Session{Address: lower(addr), Token: token, ExpiresAt: expiresAt}, nil
}

func (s *authService) ParseSession(ctx context.Context, token string) (*ctxutil.RequestData, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierr.Unauthorized("missing session")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, apierr.Unauthorized("invalid or expired session")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierr.Unauthorized("invalid session claims")
	}
	addr, _ := claims["addr"].(string)
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return nil, apierr.Unauthorized("invalid session claims")
	}
	rd := &ctxutil.RequestData{Address: strings.ToLower(addr)}
	rd.SessionID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		rd.ExpiresAt = exp.Time
	}
	return rd, nil
}
