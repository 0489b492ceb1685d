package repository

import (
	"sync"

	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/database/connection/datastore"
	"veridoc.mx/infrastructure/database/repository/mongo"
)

var auditLogOnce = sync.Once{}

var auditLogRepository mongo.MongoRepository[entities.BiometricAuditLog]

func BiometricAuditLogRepo() *mongo.MongoRepository[entities.BiometricAuditLog] {
	auditLogOnce.Do(func() {
		auditLogRepository = mongo.MongoRepository[entities.BiometricAuditLog]{Model: datastore.BiometricAuditLogModel}
	})
	return &auditLogRepository
}
