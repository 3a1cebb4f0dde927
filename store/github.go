package store

import (
	"context"
	"errors"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubTokenExchanger trade a GitHub OAuth authorization code for an access token
type GitHubTokenExchanger interface {
	/*
		AuthCodeURL the GitHub authorization page to send the user to

			@param state string - opaque value echoed back with the code
			@returns the URL
	*/
	AuthCodeURL(state string) string

	/*
		Exchange trade an authorization code for an access token

			@param ctx context.Context - execution context
			@param code string - authorization code
			@param state string - the state echoed back with the code
			@returns the access token; failures are *result.Error
	*/
	Exchange(ctx context.Context, code string, state string) (string, error)
}

// GitHubOAuthConfig GitHub OAuth application settings
type GitHubOAuthConfig struct {
	// ClientID OAuth application client ID
	ClientID string `json:"client_id" yaml:"client_id" validate:"required"`
	// ClientSecret OAuth application client secret
	ClientSecret string `json:"client_secret" yaml:"client_secret" validate:"required"`
	// RedirectURL where GitHub sends the user back to
	RedirectURL string `json:"redirect_url" yaml:"redirect_url" validate:"omitempty,url"`
}

// gitHubExchangerImpl implements GitHubTokenExchanger
type gitHubExchangerImpl struct {
	goutils.Component
	oauth oauth2.Config
}

/*
NewGitHubTokenExchanger define a GitHub token exchanger

	@param cfg GitHubOAuthConfig - OAuth application settings
	@returns exchanger
*/
func NewGitHubTokenExchanger(cfg GitHubOAuthConfig) GitHubTokenExchanger {
	return &gitHubExchangerImpl{
		Component: newComponent("github-oauth"),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  cfg.RedirectURL,
		},
	}
}

func (e *gitHubExchangerImpl) AuthCodeURL(state string) string {
	return e.oauth.AuthCodeURL(state)
}

func (e *gitHubExchangerImpl) Exchange(ctx context.Context, code string, state string) (string, error) {
	if code == "" || state == "" {
		return "", result.Validation("Invalid state or code")
	}

	logTags := e.GetLogTagsForContext(ctx)

	token, err := e.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("state", state))
	if err != nil {
		var rejected *oauth2.RetrieveError
		if errors.As(err, &rejected) {
			if rejected.ErrorCode != "" {
				return "", result.Validation(rejected.ErrorCode)
			}
			log.WithError(err).WithFields(logTags).Error("Invalid response from GitHub")
			return "", result.Validation("Invalid response from GitHub")
		}
		log.WithError(err).WithFields(logTags).Error("GitHub token exchange failed")
		return "", result.Validation("Error connecting to GitHub")
	}

	if !strings.EqualFold(token.TokenType, "bearer") {
		log.WithFields(logTags).WithField("type", token.TokenType).Error("Invalid token type from GitHub")
		return "", result.Validation("Invalid response from GitHub")
	}
	if token.AccessToken == "" {
		return "", result.Validation("Invalid access token")
	}
	return token.AccessToken, nil
}
