package store

import (
	"context"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// Labels user label controller
type Labels interface {
	/*
		Create define a new label

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param name string - label name
			@param colour string - display colour, as a hex colour
			@param activeDBClient db.Database - existing database transaction
			@returns the new label
	*/
	Create(
		ctx context.Context, auth models.Auth, name string, colour string, activeDBClient db.Database,
	) result.Result[models.Label]

	/*
		FromID fetch a label by ID

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param labelID string - label ID
			@param activeDBClient db.Database - existing database transaction
			@returns the label
	*/
	FromID(
		ctx context.Context, auth models.Auth, labelID string, activeDBClient db.Database,
	) result.Result[models.Label]

	/*
		FromName fetch a label by its decrypted name

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param name string - label name
			@param activeDBClient db.Database - existing database transaction
			@returns the label
	*/
	FromName(
		ctx context.Context, auth models.Auth, name string, activeDBClient db.Database,
	) result.Result[models.Label]

	/*
		All fetch all labels of the user

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the labels
	*/
	All(ctx context.Context, auth models.Auth, activeDBClient db.Database) result.Result[[]models.Label]

	/*
		AllWithCounts fetch all labels of the user with their usage counts. The counts are
		queried concurrently, each on its own connection.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@returns the labels with counts
	*/
	AllWithCounts(ctx context.Context, auth models.Auth) result.Result[[]models.LabelWithCount]

	/*
		UpdateName rename a label

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param labelID string - label ID
			@param name string - new name
			@param activeDBClient db.Database - existing database transaction
			@returns the updated label
	*/
	UpdateName(
		ctx context.Context, auth models.Auth, labelID string, name string, activeDBClient db.Database,
	) result.Result[models.Label]

	/*
		UpdateColour change the colour of a label

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param labelID string - label ID
			@param colour string - new colour
			@param activeDBClient db.Database - existing database transaction
			@returns the updated label
	*/
	UpdateColour(
		ctx context.Context, auth models.Auth, labelID string, colour string, activeDBClient db.Database,
	) result.Result[models.Label]

	/*
		Delete delete a label. Entries, entry edits and events using it become unlabelled.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param labelID string - label ID
			@param activeDBClient db.Database - existing database transaction
	*/
	Delete(
		ctx context.Context, auth models.Auth, labelID string, activeDBClient db.Database,
	) result.Result[result.Void]
}

// labelsImpl implements Labels
type labelsImpl struct {
	goutils.Component
	persistence db.Client
	validator   *validator.Validate
	maxLabels   int
}

/*
NewLabels define new label controller

	@param persistence db.Client - persistence layer client
	@param limits Limits - entity limits
	@returns controller
*/
func NewLabels(persistence db.Client, limits Limits) Labels {
	return &labelsImpl{
		Component:   newComponent("labels"),
		persistence: persistence,
		validator:   validator.New(),
		maxLabels:   limits.MaxLabels,
	}
}

// decryptLabel convert a stored label into its plain text form
func decryptLabel(record models.LabelRecord, key encryption.SymmetricKey) result.Result[models.Label] {
	name := encryption.Decrypt(record.EncName, key)
	if !name.IsOk() {
		return result.Forward[models.Label](name)
	}
	return result.Ok(models.Label{
		ID: record.ID, Name: name.Val(), Colour: record.Colour, Created: record.CreatedAt,
	})
}

func (s *labelsImpl) checkColour(colour string) *result.Error {
	if err := s.validator.Var(colour, "required,hexcolor"); err != nil {
		return result.Validation("Invalid colour")
	}
	return nil
}

// all list and decrypt all labels
func (s *labelsImpl) all(
	ctx context.Context, auth models.Auth, dbClient db.Database,
) result.Result[[]models.Label] {
	records, err := dbClient.ListLabels(ctx, auth.ID)
	if err != nil {
		return result.Err[[]models.Label](result.Upstream(err))
	}
	return result.Map(records, func(r models.LabelRecord) result.Result[models.Label] {
		return decryptLabel(r, auth.Key)
	})
}

// nameInUse whether another label of the user already has this name
func (s *labelsImpl) nameInUse(
	ctx context.Context, auth models.Auth, name string, dbClient db.Database,
) result.Result[bool] {
	labels := s.all(ctx, auth, dbClient)
	if !labels.IsOk() {
		return result.Forward[bool](labels)
	}
	for _, label := range labels.Val() {
		if label.Name == name {
			return result.Ok(true)
		}
	}
	return result.Ok(false)
}

func (s *labelsImpl) Create(
	ctx context.Context, auth models.Auth, name string, colour string, activeDBClient db.Database,
) result.Result[models.Label] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Label] {
			inUse := s.nameInUse(ctx, auth, name, dbClient)
			if !inUse.IsOk() {
				return result.Forward[models.Label](inUse)
			}
			if inUse.Val() {
				return result.Err[models.Label](result.Validation("Label with that name already exists"))
			}

			count, err := dbClient.CountLabels(ctx, auth.ID)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Label count failed")
				return result.Err[models.Label](result.Upstream(err))
			}
			if count >= int64(s.maxLabels) {
				return result.Err[models.Label](
					result.Validationf("Maximum number of labels (%d) reached", s.maxLabels),
				)
			}

			if err := s.checkColour(colour); err != nil {
				return result.Err[models.Label](err)
			}

			encName := encryption.EncryptName(name, auth.Key)
			if !encName.IsOk() {
				return result.Forward[models.Label](encName)
			}

			record, err := dbClient.DefineNewLabel(ctx, models.LabelRecord{
				UserID: auth.ID, EncName: encName.Val(), Colour: colour,
			})
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Label insert failed")
				return result.Err[models.Label](result.Upstream(err))
			}

			log.WithFields(s.GetLogTagsForContext(ctx)).
				WithField("user", auth.ID).
				WithField("label", record.ID).
				Debug("Defined new label")

			return result.Ok(models.Label{
				ID: record.ID, Name: name, Colour: colour, Created: record.CreatedAt,
			})
		},
	)
}

func (s *labelsImpl) FromID(
	ctx context.Context, auth models.Auth, labelID string, activeDBClient db.Database,
) result.Result[models.Label] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Label] {
			record, err := dbClient.GetLabel(ctx, auth.ID, labelID)
			if err != nil {
				failure := lookupFailure(err, "Label not found")
				logUpstream(ctx, s.Component, failure, "Label fetch failed")
				return result.Err[models.Label](failure)
			}
			return decryptLabel(record, auth.Key)
		},
	)
}

func (s *labelsImpl) FromName(
	ctx context.Context, auth models.Auth, name string, activeDBClient db.Database,
) result.Result[models.Label] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Label] {
			labels := s.all(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Label](labels)
			}
			for _, label := range labels.Val() {
				if label.Name == name {
					return result.Ok(label)
				}
			}
			return result.Err[models.Label](result.Validation("Label not found"))
		},
	)
}

func (s *labelsImpl) All(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[[]models.Label] {
	return withSession(ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.Label] {
			return s.all(ctx, auth, dbClient)
		},
	)
}

func (s *labelsImpl) AllWithCounts(
	ctx context.Context, auth models.Auth,
) result.Result[[]models.LabelWithCount] {
	labels := s.All(ctx, auth, nil)
	if !labels.IsOk() {
		return result.Forward[[]models.LabelWithCount](labels)
	}

	withCounts := make([]models.LabelWithCount, len(labels.Val()))
	wg, wgCtx := errgroup.WithContext(ctx)
	wg.SetLimit(8)
	for idx, label := range labels.Val() {
		withCounts[idx].Label = label
		counters := map[db.LabelUsage]*int64{
			db.LabelUsageEntries:    &withCounts[idx].EntryCount,
			db.LabelUsageEntryEdits: &withCounts[idx].EditCount,
			db.LabelUsageEvents:     &withCounts[idx].EventCount,
		}
		for usage, counter := range counters {
			wg.Go(func() error {
				return s.persistence.UseDatabase(
					wgCtx, func(ctx context.Context, dbClient db.Database) error {
						count, err := dbClient.CountLabelUsage(ctx, auth.ID, label.ID, usage)
						if err != nil {
							return err
						}
						*counter = count
						return nil
					},
				)
			})
		}
	}

	if err := wg.Wait(); err != nil {
		log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Label usage count failed")
		return result.Err[[]models.LabelWithCount](result.Upstream(err))
	}
	return result.Ok(withCounts)
}

func (s *labelsImpl) UpdateName(
	ctx context.Context, auth models.Auth, labelID string, name string, activeDBClient db.Database,
) result.Result[models.Label] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Label] {
			label := s.FromID(ctx, auth, labelID, dbClient)
			if !label.IsOk() {
				return label
			}

			inUse := s.nameInUse(ctx, auth, name, dbClient)
			if !inUse.IsOk() {
				return result.Forward[models.Label](inUse)
			}
			if inUse.Val() {
				return result.Err[models.Label](result.Validation("Label with that name already exists"))
			}

			encName := encryption.EncryptName(name, auth.Key)
			if !encName.IsOk() {
				return result.Forward[models.Label](encName)
			}

			if err := dbClient.UpdateLabelName(ctx, auth.ID, labelID, encName.Val()); err != nil {
				failure := lookupFailure(err, "Label not found")
				logUpstream(ctx, s.Component, failure, "Label rename failed")
				return result.Err[models.Label](failure)
			}

			updated := label.Val()
			updated.Name = name
			return result.Ok(updated)
		},
	)
}

func (s *labelsImpl) UpdateColour(
	ctx context.Context, auth models.Auth, labelID string, colour string, activeDBClient db.Database,
) result.Result[models.Label] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Label] {
			label := s.FromID(ctx, auth, labelID, dbClient)
			if !label.IsOk() {
				return label
			}

			if err := s.checkColour(colour); err != nil {
				return result.Err[models.Label](err)
			}

			if err := dbClient.UpdateLabelColour(ctx, auth.ID, labelID, colour); err != nil {
				failure := lookupFailure(err, "Label not found")
				logUpstream(ctx, s.Component, failure, "Label colour change failed")
				return result.Err[models.Label](failure)
			}

			updated := label.Val()
			updated.Colour = colour
			return result.Ok(updated)
		},
	)
}

func (s *labelsImpl) Delete(
	ctx context.Context, auth models.Auth, labelID string, activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			if err := dbClient.DeleteLabel(ctx, auth.ID, labelID); err != nil {
				failure := lookupFailure(err, "Label not found")
				logUpstream(ctx, s.Component, failure, "Label delete failed")
				return result.Err[result.Void](failure)
			}
			return result.OkVoid()
		},
	)
}
