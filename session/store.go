package session

import (
	"github.com/alexedwards/scs/gormstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"gorm.io/gorm"
)

func NewMemoryStore() scs.Store {
	return memstore.New()
}

// NewDatabaseStore keeps session data in the sessions table. Expired rows are
// removed by the store's own cleanup goroutine.
func NewDatabaseStore(db *gorm.DB) (scs.Store, error) {
	return gormstore.New(db)
}
