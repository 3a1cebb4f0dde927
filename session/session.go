// Package session - cookie based session identity
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// KeyCookieName cookie carrying the signed session token
	KeyCookieName = "key"
	// UsernameCookieName cookie carrying the query escaped username, readable by client script
	UsernameCookieName = "username"
	// DefaultMaxAge session lifetime
	DefaultMaxAge = 24 * time.Hour
	// RememberMeMaxAge session lifetime when the user asked to be remembered
	RememberMeMaxAge = 365 * 24 * time.Hour

	tokenIssuer    = "halcyon"
	signingPurpose = "halcyon.session.signing.v1"
	sealingPurpose = "halcyon.session.sealing.v1"
)

// Authenticator verify a username and key pair
type Authenticator interface {
	Authenticate(
		ctx context.Context,
		username string,
		key encryption.SymmetricKey,
		activeDBClient db.Database,
	) result.Result[models.Auth]
}

// Params session manager settings
type Params struct {
	// Secret server secret the cookie keys are derived from
	Secret string `json:"secret" yaml:"secret" validate:"required,min=32"`
	// Secure whether cookies are only sent over HTTPS
	Secure bool `json:"secure" yaml:"secure"`
}

// sessionClaims claims of the session token
type sessionClaims struct {
	jwt.RegisteredClaims
	// Username login name
	Username string `json:"username"`
	// SealedKey the user key, encrypted under the server sealing key
	SealedKey string `json:"sk"`
}

// Manager session cookie manager
type Manager interface {
	/*
		SetAuthCookies place a session identity into the response cookies. This is the
		only place a user key is written into a cookie.

			@param w http.ResponseWriter - the response
			@param auth models.Auth - session identity
			@param rememberMe bool - use the long session lifetime
	*/
	SetAuthCookies(w http.ResponseWriter, auth models.Auth, rememberMe bool) error

	/*
		TryGetAuthFromCookies rebuild the session identity of a request. The identity is
		re-authenticated, so a session opened before a password change is rejected.

			@param ctx context.Context - execution context
			@param r *http.Request - the request
			@returns the identity, nil if the request carries no valid session
	*/
	TryGetAuthFromCookies(ctx context.Context, r *http.Request) *models.Auth

	/*
		ClearAuthCookies expire the session cookies

			@param w http.ResponseWriter - the response
	*/
	ClearAuthCookies(w http.ResponseWriter)
}

// managerImpl implements Manager
type managerImpl struct {
	goutils.Component
	users      Authenticator
	signingKey encryption.SymmetricKey
	sealingKey encryption.SymmetricKey
	secure     bool
	now        func() time.Time
}

/*
NewManager define new session cookie manager

	@param params Params - manager settings
	@param users Authenticator - verifies the identity carried by a cookie
	@returns manager
*/
func NewManager(params Params, users Authenticator) (Manager, error) {
	if err := validator.New().Struct(&params); err != nil {
		return nil, fmt.Errorf("session parameters are not valid [%w]", err)
	}

	signingKey, err := encryption.DeriveSubKey([]byte(params.Secret), signingPurpose)
	if err != nil {
		return nil, err
	}
	sealingKey, err := encryption.DeriveSubKey([]byte(params.Secret), sealingPurpose)
	if err != nil {
		return nil, err
	}

	return &managerImpl{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "session", "component": "cookie-manager"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		users:      users,
		signingKey: signingKey,
		sealingKey: sealingKey,
		secure:     params.Secure,
		now:        time.Now,
	}, nil
}

func (m *managerImpl) SetAuthCookies(w http.ResponseWriter, auth models.Auth, rememberMe bool) error {
	maxAge := DefaultMaxAge
	if rememberMe {
		maxAge = RememberMeMaxAge
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   auth.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
		},
		Username:  auth.Username,
		SealedKey: encryption.Encrypt(auth.Key.Encode(), m.sealingKey),
	})
	signed, err := token.SignedString(m.signingKey[:])
	if err != nil {
		return fmt.Errorf("failed to sign session token [%w]", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     KeyCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     UsernameCookieName,
		Value:    url.QueryEscape(auth.Username),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (m *managerImpl) TryGetAuthFromCookies(ctx context.Context, r *http.Request) *models.Auth {
	logTags := m.GetLogTagsForContext(ctx)

	keyCookie, err := r.Cookie(KeyCookieName)
	if err != nil || keyCookie.Value == "" {
		return nil
	}
	usernameCookie, err := r.Cookie(UsernameCookieName)
	if err != nil {
		return nil
	}

	claims := &sessionClaims{}
	if _, err := jwt.ParseWithClaims(
		keyCookie.Value,
		claims,
		func(*jwt.Token) (interface{}, error) { return m.signingKey[:], nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	); err != nil {
		log.WithError(err).WithFields(logTags).Debug("Rejected session token")
		return nil
	}

	username, err := url.QueryUnescape(usernameCookie.Value)
	if err != nil || claims.Username != username {
		log.WithFields(logTags).Debug("Session token and username cookie mismatch")
		return nil
	}

	unsealed := encryption.Decrypt(claims.SealedKey, m.sealingKey)
	if !unsealed.IsOk() {
		log.WithFields(logTags).Debug("Session key unseal failed")
		return nil
	}
	key, err := encryption.ParseSymmetricKey(unsealed.Val())
	if err != nil {
		log.WithError(err).WithFields(logTags).Debug("Session key parse failed")
		return nil
	}

	auth := m.users.Authenticate(ctx, claims.Username, key, nil)
	if !auth.IsOk() {
		log.WithFields(logTags).WithField("user", claims.Subject).Debug("Session no longer valid")
		return nil
	}
	if auth.Val().ID != claims.Subject {
		return nil
	}

	identity := auth.Val()
	return &identity
}

func (m *managerImpl) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{KeyCookieName, UsernameCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == KeyCookieName,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
