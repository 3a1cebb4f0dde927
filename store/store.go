package store

import "github.com/alwitt/halcyon/db"

// Store the full set of data controllers sharing one persistence client
type Store struct {
	Users    Users
	Labels   Labels
	Entries  Entries
	Events   Events
	Settings Settings
	Assets   Assets
	Backups  Backups
}

/*
NewStore define the data controllers

	@param persistence db.Client - persistence layer client
	@param limits Limits - entity limits
	@param github GitHubTokenExchanger - GitHub OAuth client, nil when not configured
	@returns the controllers
*/
func NewStore(persistence db.Client, limits Limits, github GitHubTokenExchanger) *Store {
	labels := NewLabels(persistence, limits)
	settings := NewSettings(persistence)
	backups := NewBackups(persistence)
	return &Store{
		Users:    NewUsers(persistence, backups, settings, github),
		Labels:   labels,
		Entries:  NewEntries(persistence, labels),
		Events:   NewEvents(persistence, labels, limits),
		Settings: settings,
		Assets:   NewAssets(persistence),
		Backups:  backups,
	}
}
