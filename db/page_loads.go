package db

import (
	"context"
	"fmt"

	"github.com/alwitt/halcyon/models"
	"github.com/oklog/ulid/v2"
)

/*
RecordPageLoad record one served request

	@param ctx context.Context - execution context
	@param entry models.PageLoad - the request summary
*/
func (d *databaseImpl) RecordPageLoad(_ context.Context, entry models.PageLoad) error {
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	newEntry := PageLoadDBEntry{PageLoad: entry}

	if err := d.validator.Struct(&newEntry); err != nil {
		return fmt.Errorf("page load entry is not valid [%w]", err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return fmt.Errorf("page load entry failed insert [%w]", tmp.Error)
	}
	return nil
}

/*
ListPageLoads list recorded requests, newest first

	@param ctx context.Context - execution context
	@param filters PageLoadQueryFilter - entry listing filter
	@returns list of page loads
*/
func (d *databaseImpl) ListPageLoads(
	_ context.Context, filters PageLoadQueryFilter,
) ([]models.PageLoad, error) {
	query := d.db.Model(&PageLoadDBEntry{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}

	query = applyPaging(query, filters.CommonListEntryQueryFilter).
		Order("created_at desc").Order("id desc")

	var entries []PageLoadDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list page loads [%w]", tmp.Error)
	}

	result := []models.PageLoad{}
	for _, entry := range entries {
		result = append(result, entry.PageLoad)
	}
	return result, nil
}
