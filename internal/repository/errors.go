// Package repository implements the persistent side of the booking
// lifecycle on MySQL: the booking store, the per-event capacity ledger,
// the event catalog and administrator accounts.  Driver errors are
// translated here into the sentinel values of package booking so the
// layers above never inspect MySQL error numbers.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when an administrator account with the same
// e-mail already exists.
var ErrEmailExists = errors.New("email already exists")

const mysqlDuplicateEntry = 1062

// isDuplicateEntry reports whether err is a MySQL unique key violation.
// InnoDB rejects the statement but keeps the surrounding transaction
// usable, which is what the insert retry loop relies on.
func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
