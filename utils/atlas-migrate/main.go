// Package main - Atlas GORM migration support binary
package main

import (
	"flag"
	"fmt"

	"ariga.io/atlas-provider-gorm/gormschema"
	"github.com/alwitt/halcyon/db"
	"github.com/apex/log"
)

func main() {
	dialect := flag.String("dialect", "postgres", "SQL dialect: postgres, mysql or sqlite")
	flag.Parse()

	stmts, err := gormschema.New(*dialect).Load(db.AllTables()...)
	if err != nil {
		log.WithError(err).WithField("dialect", *dialect).Fatal("Failed to load GORM models")
	}
	fmt.Printf("%s\n", stmts)
}
