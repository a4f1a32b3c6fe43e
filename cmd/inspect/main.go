// Command inspect prints the published schedule history stored in Badger.
// It opens the database read-only so it can run next to a live server.
package main

import (
	"community-pulse/internal"
	"community-pulse/repositories"
	"flag"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	limit := flag.Int("limit", 20, "Number of schedules to show, 0 for all")
	flag.Parse()

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repo := repositories.NewScheduleRepository(db, logs.GetLoggerFromString("WARN"))
	records, err := repo.History(*limit)
	if err != nil {
		log.Fatal("Error while reading history: ", err)
	}
	internal.WriteScheduleTable(os.Stdout, records)
}
