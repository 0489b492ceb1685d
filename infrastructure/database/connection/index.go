package connection

import (
	"veridoc.mx/infrastructure/database/connection/datastore"
)

func ConnectToDatabase() {
	datastore.ConnectMongo()
}
