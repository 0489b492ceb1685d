package database

import (
	"veridoc.mx/infrastructure/database/connection"
)

// Models stored in the datastore must know how to stamp themselves before a
// write.
type BaseModel interface {
	ParseModel() any
}

func SetUpDatabase() {
	connection.ConnectToDatabase()
}
