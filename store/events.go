package store

import (
	"context"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/models"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
)

// EventContent the user editable fields of an event
type EventContent struct {
	Name    string    `json:"name"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	LabelID string    `json:"labelId"`
}

// Events event controller
type Events interface {
	/*
		Create define a new event

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param content EventContent - event fields
			@param activeDBClient db.Database - existing database transaction
			@returns the new event
	*/
	Create(
		ctx context.Context, auth models.Auth, content EventContent, activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		FromID fetch an event

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param activeDBClient db.Database - existing database transaction
			@returns the event
	*/
	FromID(
		ctx context.Context, auth models.Auth, eventID string, activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		All fetch all events of the user, by start time

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param activeDBClient db.Database - existing database transaction
			@returns the events
	*/
	All(ctx context.Context, auth models.Auth, activeDBClient db.Database) result.Result[[]models.Event]

	/*
		WithLabel fetch all events of the user with a label

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param labelID string - label ID
			@param activeDBClient db.Database - existing database transaction
			@returns the events
	*/
	WithLabel(
		ctx context.Context, auth models.Auth, labelID string, activeDBClient db.Database,
	) result.Result[[]models.Event]

	/*
		UpdateName rename an event

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param name string - new name
			@param activeDBClient db.Database - existing database transaction
			@returns the updated event
	*/
	UpdateName(
		ctx context.Context, auth models.Auth, eventID string, name string, activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		UpdateStart move the start of an event. If the new start is after the end, the end
		moves to one hour after the new start.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param start time.Time - new start
			@param activeDBClient db.Database - existing database transaction
			@returns the updated event
	*/
	UpdateStart(
		ctx context.Context, auth models.Auth, eventID string, start time.Time, activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		UpdateEnd move the end of an event. If the new end is before the start, the start
		moves to one hour before the new end.

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param end time.Time - new end
			@param activeDBClient db.Database - existing database transaction
			@returns the updated event
	*/
	UpdateEnd(
		ctx context.Context, auth models.Auth, eventID string, end time.Time, activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		UpdateStartAndEnd replace the time span of an event

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param start time.Time - new start
			@param end time.Time - new end
			@param activeDBClient db.Database - existing database transaction
			@returns the updated event
	*/
	UpdateStartAndEnd(
		ctx context.Context,
		auth models.Auth,
		eventID string,
		start time.Time,
		end time.Time,
		activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		UpdateLabel change the label of an event

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param labelID string - new label ID, empty to clear
			@param activeDBClient db.Database - existing database transaction
			@returns the updated event
	*/
	UpdateLabel(
		ctx context.Context, auth models.Auth, eventID string, labelID string, activeDBClient db.Database,
	) result.Result[models.Event]

	/*
		Delete delete an event

			@param ctx context.Context - execution context
			@param auth models.Auth - session identity
			@param eventID string - event ID
			@param activeDBClient db.Database - existing database transaction
	*/
	Delete(
		ctx context.Context, auth models.Auth, eventID string, activeDBClient db.Database,
	) result.Result[result.Void]
}

// eventsImpl implements Events
type eventsImpl struct {
	goutils.Component
	persistence db.Client
	labels      Labels
	maxEvents   int
}

/*
NewEvents define new event controller

	@param persistence db.Client - persistence layer client
	@param labels Labels - label controller
	@param limits Limits - entity limits
	@returns controller
*/
func NewEvents(persistence db.Client, labels Labels, limits Limits) Events {
	return &eventsImpl{
		Component:   newComponent("events"),
		persistence: persistence,
		labels:      labels,
		maxEvents:   limits.MaxEvents,
	}
}

// decryptEvent convert a stored event into its plain text form
func decryptEvent(
	record models.EventRecord, key encryption.SymmetricKey, labels map[string]*models.Label,
) result.Result[models.Event] {
	name := encryption.Decrypt(record.EncName, key)
	if !name.IsOk() {
		return result.Forward[models.Event](name)
	}
	event := models.Event{
		ID:      record.ID,
		Name:    name.Val(),
		Start:   record.Start,
		End:     record.End,
		LabelID: derefID(record.LabelID),
		Created: record.CreatedAt,
	}
	if event.LabelID != "" {
		label, ok := labels[event.LabelID]
		if !ok {
			return result.Err[models.Event](result.Validation("Label not found"))
		}
		event.Label = label
	}
	return result.Ok(event)
}

func (s *eventsImpl) labelIndex(
	ctx context.Context, auth models.Auth, dbClient db.Database,
) result.Result[map[string]*models.Label] {
	labels := s.labels.All(ctx, auth, dbClient)
	if !labels.IsOk() {
		return result.Forward[map[string]*models.Label](labels)
	}
	return result.Ok(labelIndex(labels.Val()))
}

// checkLabel verify a non-empty label ID refers to a label of the user
func (s *eventsImpl) checkLabel(
	ctx context.Context, auth models.Auth, labelID string, dbClient db.Database,
) *result.Error {
	if labelID == "" {
		return nil
	}
	if label := s.labels.FromID(ctx, auth, labelID, dbClient); !label.IsOk() {
		return label.Error()
	}
	return nil
}

func (s *eventsImpl) Create(
	ctx context.Context, auth models.Auth, content EventContent, activeDBClient db.Database,
) result.Result[models.Event] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Event] {
			count, err := dbClient.CountEvents(ctx, auth.ID)
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Event count failed")
				return result.Err[models.Event](result.Upstream(err))
			}
			if count >= int64(s.maxEvents) {
				return result.Err[models.Event](
					result.Validationf("Maximum number of events (%d) reached", s.maxEvents),
				)
			}

			if content.Name == "" {
				return result.Err[models.Event](result.Validation("Event name cannot be empty"))
			}
			if content.Start.After(content.End) {
				return result.Err[models.Event](result.Validation("Start time cannot be after end time"))
			}
			if err := s.checkLabel(ctx, auth, content.LabelID, dbClient); err != nil {
				return result.Err[models.Event](err)
			}

			encName := encryption.EncryptName(content.Name, auth.Key)
			if !encName.IsOk() {
				return result.Forward[models.Event](encName)
			}

			record, err := dbClient.DefineNewEvent(ctx, models.EventRecord{
				UserID:  auth.ID,
				EncName: encName.Val(),
				Start:   content.Start,
				End:     content.End,
				LabelID: optionalID(content.LabelID),
			})
			if err != nil {
				log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Event insert failed")
				return result.Err[models.Event](result.Upstream(err))
			}

			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Event](labels)
			}
			return decryptEvent(record, auth.Key, labels.Val())
		},
	)
}

// getRecord fetch one stored event
func (s *eventsImpl) getRecord(
	ctx context.Context, auth models.Auth, eventID string, dbClient db.Database,
) result.Result[models.EventRecord] {
	record, err := dbClient.GetEvent(ctx, auth.ID, eventID)
	if err != nil {
		failure := lookupFailure(err, "Event not found")
		logUpstream(ctx, s.Component, failure, "Event fetch failed")
		return result.Err[models.EventRecord](failure)
	}
	return result.Ok(record)
}

func (s *eventsImpl) FromID(
	ctx context.Context, auth models.Auth, eventID string, activeDBClient db.Database,
) result.Result[models.Event] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Event] {
			record := s.getRecord(ctx, auth, eventID, dbClient)
			if !record.IsOk() {
				return result.Forward[models.Event](record)
			}
			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Event](labels)
			}
			return decryptEvent(record.Val(), auth.Key, labels.Val())
		},
	)
}

// list list and decrypt events matching a filter
func (s *eventsImpl) list(
	ctx context.Context, auth models.Auth, filter db.EventQueryFilter, dbClient db.Database,
) result.Result[[]models.Event] {
	labels := s.labelIndex(ctx, auth, dbClient)
	if !labels.IsOk() {
		return result.Forward[[]models.Event](labels)
	}
	records, err := dbClient.ListEvents(ctx, auth.ID, filter)
	if err != nil {
		log.WithError(err).WithFields(s.GetLogTagsForContext(ctx)).Error("Event list failed")
		return result.Err[[]models.Event](result.Upstream(err))
	}
	return result.Map(records, func(r models.EventRecord) result.Result[models.Event] {
		return decryptEvent(r, auth.Key, labels.Val())
	})
}

func (s *eventsImpl) All(
	ctx context.Context, auth models.Auth, activeDBClient db.Database,
) result.Result[[]models.Event] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.Event] {
			return s.list(ctx, auth, db.EventQueryFilter{}, dbClient)
		},
	)
}

func (s *eventsImpl) WithLabel(
	ctx context.Context, auth models.Auth, labelID string, activeDBClient db.Database,
) result.Result[[]models.Event] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[[]models.Event] {
			if label := s.labels.FromID(ctx, auth, labelID, dbClient); !label.IsOk() {
				return result.Forward[[]models.Event](label)
			}
			return s.list(ctx, auth, db.EventQueryFilter{LabelID: &labelID}, dbClient)
		},
	)
}

/*
update apply a change to a stored event, then persist and return it

	@param ctx context.Context - execution context
	@param auth models.Auth - session identity
	@param eventID string - event ID
	@param change func(...) *result.Error - modifies the stored record in place
	@param activeDBClient db.Database - existing database transaction
	@returns the updated event
*/
func (s *eventsImpl) update(
	ctx context.Context,
	auth models.Auth,
	eventID string,
	change func(ctx context.Context, dbClient db.Database, record *models.EventRecord) *result.Error,
	activeDBClient db.Database,
) result.Result[models.Event] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[models.Event] {
			current := s.getRecord(ctx, auth, eventID, dbClient)
			if !current.IsOk() {
				return result.Forward[models.Event](current)
			}
			record := current.Val()
			if err := change(ctx, dbClient, &record); err != nil {
				return result.Err[models.Event](err)
			}

			if err := dbClient.UpdateEvent(ctx, record); err != nil {
				failure := lookupFailure(err, "Event not found")
				logUpstream(ctx, s.Component, failure, "Event update failed")
				return result.Err[models.Event](failure)
			}

			labels := s.labelIndex(ctx, auth, dbClient)
			if !labels.IsOk() {
				return result.Forward[models.Event](labels)
			}
			return decryptEvent(record, auth.Key, labels.Val())
		},
	)
}

func (s *eventsImpl) UpdateName(
	ctx context.Context, auth models.Auth, eventID string, name string, activeDBClient db.Database,
) result.Result[models.Event] {
	return s.update(ctx, auth, eventID,
		func(_ context.Context, _ db.Database, record *models.EventRecord) *result.Error {
			if name == "" {
				return result.Validation("Event name cannot be empty")
			}
			encName := encryption.EncryptName(name, auth.Key)
			if !encName.IsOk() {
				return encName.Error()
			}
			record.EncName = encName.Val()
			return nil
		}, activeDBClient,
	)
}

func (s *eventsImpl) UpdateStart(
	ctx context.Context, auth models.Auth, eventID string, start time.Time, activeDBClient db.Database,
) result.Result[models.Event] {
	return s.update(ctx, auth, eventID,
		func(_ context.Context, _ db.Database, record *models.EventRecord) *result.Error {
			if start.After(record.End) {
				record.End = start.Add(time.Hour)
			}
			record.Start = start
			return nil
		}, activeDBClient,
	)
}

func (s *eventsImpl) UpdateEnd(
	ctx context.Context, auth models.Auth, eventID string, end time.Time, activeDBClient db.Database,
) result.Result[models.Event] {
	return s.update(ctx, auth, eventID,
		func(_ context.Context, _ db.Database, record *models.EventRecord) *result.Error {
			if end.Before(record.Start) {
				record.Start = end.Add(-time.Hour)
			}
			record.End = end
			return nil
		}, activeDBClient,
	)
}

func (s *eventsImpl) UpdateStartAndEnd(
	ctx context.Context,
	auth models.Auth,
	eventID string,
	start time.Time,
	end time.Time,
	activeDBClient db.Database,
) result.Result[models.Event] {
	return s.update(ctx, auth, eventID,
		func(_ context.Context, _ db.Database, record *models.EventRecord) *result.Error {
			if start.After(end) {
				return result.Validation("Start time cannot be after end time")
			}
			record.Start = start
			record.End = end
			return nil
		}, activeDBClient,
	)
}

func (s *eventsImpl) UpdateLabel(
	ctx context.Context, auth models.Auth, eventID string, labelID string, activeDBClient db.Database,
) result.Result[models.Event] {
	return s.update(ctx, auth, eventID,
		func(ctx context.Context, dbClient db.Database, record *models.EventRecord) *result.Error {
			if err := s.checkLabel(ctx, auth, labelID, dbClient); err != nil {
				return err
			}
			record.LabelID = optionalID(labelID)
			return nil
		}, activeDBClient,
	)
}

func (s *eventsImpl) Delete(
	ctx context.Context, auth models.Auth, eventID string, activeDBClient db.Database,
) result.Result[result.Void] {
	return withSession(
		ctx, activeDBClient, s.persistence,
		func(ctx context.Context, dbClient db.Database) result.Result[result.Void] {
			if err := dbClient.DeleteEvent(ctx, auth.ID, eventID); err != nil {
				failure := lookupFailure(err, "Event not found")
				logUpstream(ctx, s.Component, failure, "Event delete failed")
				return result.Err[result.Void](failure)
			}
			return result.OkVoid()
		},
	)
}
