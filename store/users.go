package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"gorm.io/gorm"
)

// maxSaltAttempts how many salts to try before giving up on a unique one
const maxSaltAttempts = 16

// Users user account controller
type Users interface {
	/*
		Create sign up a new user

			@param ctx context.Context - execution context
			@param username string - login name
			@param password string - password
			@param activeDBClient db.Database - existing database transaction
			@returns session identity of the new user
	*/
	Create(
		ctx context.Context, username string, password string, activeDBClient db.Database,
	) result.Result[models.Auth]

	/*
		Authenticate verify a username and derived key pair

			@param ctx context.Context - execution context
			@param username string - login name
			@param key encryption.SymmetricKey - key derived from the password
			@param activeDBClient db.Database - existing database transaction
			@returns session identity
	*/
	Authenticate(
		ctx context.Context,
		username string,
		key encryption.SymmetricKey,
		activeDBClient db.Database,
	) result.Result[models.Auth]

	/*
		Login verify a username and password pair

			@param ctx context.Context - execution context
			@param username string - login name
			@param password string - password
			@param activeDBClient db.Database - existing database transaction
			@returns session identity
	*/
	Login(
		ctx context.Context, username string, password string, activeDBClient db.Database,
	) result.Result[models.Auth]

	/*
		ChangePassword change the user's password, re-encrypting all of the user's data
		under the new key. Every write happens in one transaction.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param currentPassword string - the current password
			@param newPassword string - the new password
			@param activeDBClient db.Database - existing database transaction
			@returns the new session identity
	*/
	ChangePassword(
		ctx context.Context,
		auth models.Auth,
		currentPassword string,
		newPassword string,
		activeDBClient db.Database,
	) result.Result[models.Auth]

	/*
		Purge delete the user and all of the user's data

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
	*/
	Purge(ctx context.Context, auth models.Auth, activeDBClient db.Database) result.Result[result.Void]

	/*
		LinkGitHub exchange a GitHub OAuth code and store the access token

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param code string - OAuth authorization code
			@param state string - OAuth state
			@param activeDBClient db.Database - existing database transaction
	*/
	LinkGitHub(
		ctx context.Context, auth models.Auth, code string, state string, activeDBClient db.Database,
	) result.Result[result.Void]

	/*
		GitHubToken fetch the stored GitHub access token, empty when not linked

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the token
	*/
	GitHubToken(
		ctx context.Context, auth models.Auth, activeDBClient db.Database,
	) result.Result[string]

	/*
		AuditTrail list the audit events of the user, oldest first

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the audit events
	*/
	AuditTrail(
		ctx context.Context, auth models.Auth, activeDBClient db.Database,
	) result.Result[[]models.AuditEvent]
}

// usersImpl implements Users
type usersImpl struct {
	goutils.Component
	persistence db.Client
	backups     Backups
	settings    Settings
	github      GitHubTokenExchanger
}

/*
NewUsers define new user account controller

	@param persistence db.Client - persistence layer client
	@param backups Backups - backup controller, used to re-encrypt data on password change
	@param settings Settings - settings controller
	@param github GitHubTokenExchanger - GitHub OAuth client, nil when not configured
	@returns controller
*/
func NewUsers(
	persistence db.Client, backups Backups, settings Settings, github GitHubTokenExchanger,
) Users {
	return &usersImpl{
		Component:   newComponent("users"),
		persistence: persistence,
		backups:     backups,
		settings:    settings,
		github:      github,
	}
}

func (s *usersImpl) Create(
	ctx context.Context, username string, password string, activeDBClient db.Database,
) result.Result[models.Auth] {
	if utf8.RuneCountInString(username) < models.MinUsernameLen {
		return result.Err[models.Auth](
			result.Validationf("Username must be at least %d characters", models.MinUsernameLen),
		)
	}
	if utf8.RuneCountInString(password) < models.MinSignupPasswordLen {
		return result.Err[models.Auth](
			result.Validationf("Password must be at least %d characters", models.MinSignupPasswordLen),
		)
	}
	if utf8.RuneCountInString(username) > models.MaxUsernameLen {
		return result.Err[models.Auth](
			result.Validationf("Username must be less than %d characters", models.MaxUsernameLen),
		)
	}

	key := encryption.DeriveKey(password)

	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Auth] {
			logTags := s.GetLogTagsForContext(ctx)

			inUse, err := dbClient.IsUsernameInUse(ctx, username)
			if err != nil {
				log.WithError(err).WithFields(logTags).Error("Username check failed")
				return result.Err[models.Auth](result.Upstream(err))
			}
			if inUse {
				return result.Err[models.Auth](result.Validation("Username already in use"))
			}

			salt := ""
			for attempt := 0; attempt < maxSaltAttempts && salt == ""; attempt++ {
				candidate := encryption.NewSalt()
				taken, err := dbClient.IsSaltInUse(ctx, candidate)
				if err != nil {
					log.WithError(err).WithFields(logTags).Error("Salt check failed")
					return result.Err[models.Auth](result.Upstream(err))
				}
				if !taken {
					salt = candidate
				}
			}
			if salt == "" {
				err := fmt.Errorf("no unique salt after %d attempts", maxSaltAttempts)
				log.WithError(err).WithFields(logTags).Error("Salt generation failed")
				return result.Err[models.Auth](result.Upstream(err))
			}

			user, err := dbClient.DefineNewUser(ctx, username, encryption.HashKey(key, salt), salt)
			if err != nil {
				log.WithError(err).WithFields(logTags).Error("User insert failed")
				return result.Err[models.Auth](result.Upstream(err))
			}

			if _, err := dbClient.RecordAuditEvent(
				ctx, user.ID, models.AuditEventTypeUserCreated,
				models.AuditEventUserRelated{Username: username},
			); err != nil {
				log.WithError(err).WithFields(logTags).Error("Audit record failed")
				return result.Err[models.Auth](result.Upstream(err))
			}

			log.WithFields(logTags).WithField("user", user.ID).Info("Created new user")
			return result.Ok(models.Auth{ID: user.ID, Username: username, Key: key})
		},
	)
}

func (s *usersImpl) Authenticate(
	ctx context.Context,
	username string,
	key encryption.SymmetricKey,
	activeDBClient db.Database,
) result.Result[models.Auth] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Auth] {
			user, err := dbClient.GetUserByUsername(ctx, username)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return result.Err[models.Auth](result.Authentication())
				}
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("User fetch failed")
				return result.Err[models.Auth](result.Upstream(err))
			}
			if !encryption.VerifyKeyHash(key, user.Salt, user.PasswordHash) {
				return result.Err[models.Auth](result.Authentication())
			}
			return result.Ok(models.Auth{ID: user.ID, Username: user.Username, Key: key})
		},
	)
}

func (s *usersImpl) Login(
	ctx context.Context, username string, password string, activeDBClient db.Database,
) result.Result[models.Auth] {
	return s.Authenticate(ctx, username, encryption.DeriveKey(password), activeDBClient)
}

func (s *usersImpl) ChangePassword(
	ctx context.Context,
	auth models.Auth,
	currentPassword string,
	newPassword string,
	activeDBClient db.Database,
) result.Result[models.Auth] {
	if currentPassword == "" {
		return result.Err[models.Auth](result.Validation("Invalid password"))
	}
	if utf8.RuneCountInString(newPassword) < models.MinPasswordLen {
		return result.Err[models.Auth](result.Validation("New password is too short"))
	}
	if !encryption.DeriveKey(currentPassword).Equal(auth.Key) {
		return result.Err[models.Auth](result.Validation("Current password is invalid"))
	}
	if currentPassword == newPassword {
		return result.Err[models.Auth](result.Validation("New password is same as current password"))
	}

	newAuth := models.Auth{
		ID: auth.ID, Username: auth.Username, Key: encryption.DeriveKey(newPassword),
	}

	changed := withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Auth] {
			backup := s.backups.Generate(ctx, auth, dbClient)
			if !backup.IsOk() {
				return result.Forward[models.Auth](backup)
			}

			user, err := dbClient.GetUser(ctx, auth.ID)
			if err != nil {
				return result.Err[models.Auth](result.Upstream(err))
			}

			if err := dbClient.UpdateUserPasswordHash(
				ctx, auth.ID, encryption.HashKey(newAuth.Key, user.Salt),
			); err != nil {
				return result.Err[models.Auth](result.Upstream(err))
			}

			written := s.backups.Rewrite(ctx, newAuth, backup.Val(), dbClient)
			if !written.IsOk() {
				return result.Forward[models.Auth](written)
			}

			if rekeyed := s.settings.ChangeEncryptionKey(
				ctx, auth, newAuth.Key, dbClient,
			); !rekeyed.IsOk() {
				return result.Forward[models.Auth](rekeyed)
			}

			if user.EncGitHubToken != "" {
				token := encryption.Decrypt(user.EncGitHubToken, auth.Key)
				if !token.IsOk() {
					return result.Forward[models.Auth](token)
				}
				if err := dbClient.UpdateUserGitHubToken(
					ctx, auth.ID, encryption.Encrypt(token.Val(), newAuth.Key),
				); err != nil {
					return result.Err[models.Auth](result.Upstream(err))
				}
			}

			if _, err := dbClient.RecordAuditEvent(
				ctx, auth.ID, models.AuditEventTypePasswordChanged, written.Val(),
			); err != nil {
				return result.Err[models.Auth](result.Upstream(err))
			}

			return result.Ok(newAuth)
		},
	)

	logTags := s.GetLogTagsForContext(ctx)
	if !changed.IsOk() {
		log.WithError(changed.Error()).
			WithFields(logTags).
			WithField("user", auth.ID).
			Error("Password change failed, all changes rolled back")
		return changed
	}

	log.WithFields(logTags).WithField("user", auth.ID).Info("Changed password")
	return changed
}

func (s *usersImpl) Purge(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			if err := dbClient.DeleteUser(ctx, auth.ID); err != nil {
				log.WithError(err).
					WithFields(s.GetLogTagsForContext(ctx)).
					WithField("user", auth.ID).
					Error("User purge failed")
				return result.Err[result.Void](result.Upstream(err))
			}
			log.WithFields(s.GetLogTagsForContext(ctx)).WithField("user", auth.ID).Info("Purged user")
			return result.OkVoid()
		},
	)
}

func (s *usersImpl) LinkGitHub(
	ctx context.Context, auth models.Auth, code string, state string, activeDBClient db.Database,
) result.Result[result.Void] {
	if s.github == nil {
		return result.Err[result.Void](result.Validation("GitHub integration is not configured"))
	}

	token, err := s.github.Exchange(ctx, code, state)
	if err != nil {
		return result.Err[result.Void](result.AsError(err))
	}

	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			if err := dbClient.UpdateUserGitHubToken(
				ctx, auth.ID, encryption.Encrypt(token, auth.Key),
			); err != nil {
				failure := lookupFailure(err, "User not found")
				logUpstream(ctx, s.Component, failure, "GitHub token save failed")
				return result.Err[result.Void](failure)
			}
			if _, err := dbClient.RecordAuditEvent(
				ctx, auth.ID, models.AuditEventTypeGitHubLinked, nil,
			); err != nil {
				return result.Err[result.Void](result.Upstream(err))
			}
			return result.OkVoid()
		},
	)
}

func (s *usersImpl) GitHubToken(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[string] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[string] {
			user, err := dbClient.GetUser(ctx, auth.ID)
			if err != nil {
				failure := lookupFailure(err, "User not found")
				logUpstream(ctx, s.Component, failure, "User fetch failed")
				return result.Err[string](failure)
			}
			return encryption.Decrypt(user.EncGitHubToken, auth.Key)
		},
	)
}

func (s *usersImpl) AuditTrail(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[[]models.AuditEvent] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.AuditEvent] {
			events, err := dbClient.ListAuditEvents(ctx, db.AuditEventQueryFilter{UserID: &auth.ID})
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Audit event list failed")
				return result.Err[[]models.AuditEvent](result.Upstream(err))
			}
			return result.Ok(events)
		},
	)
}
