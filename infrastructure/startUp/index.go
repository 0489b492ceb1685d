package startup

import (
	"veridoc.mx/application/biometry"
	"veridoc.mx/application/constants"
	"veridoc.mx/infrastructure/alerts"
	"veridoc.mx/infrastructure/database"
	"veridoc.mx/infrastructure/database/connection/datastore"
	"veridoc.mx/infrastructure/logger"
	messagequeue "veridoc.mx/infrastructure/message_queue"
)

// Used to start services such as loggers, databases, queues, etc.
func StartServices() {
	logger.InitializeLogger()
	constants.LoadOverrides()
	database.SetUpDatabase()
	messagequeue.StartQueue()
	biometry.InitializeService(alerts.QueueAlertSink{})
}

// Used to clean up after services that have been shutdown.
func CleanUpServices() {
	datastore.CleanUp()
}
