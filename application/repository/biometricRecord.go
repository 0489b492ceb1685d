package repository

import (
	"sync"

	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/database/connection/datastore"
	"veridoc.mx/infrastructure/database/repository/mongo"
)

var biometricRecordOnce = sync.Once{}

var biometricRecordRepository mongo.MongoRepository[entities.BiometricRecord]

func BiometricRecordRepo() *mongo.MongoRepository[entities.BiometricRecord] {
	biometricRecordOnce.Do(func() {
		biometricRecordRepository = mongo.MongoRepository[entities.BiometricRecord]{Model: datastore.BiometricRecordModel}
	})
	return &biometricRecordRepository
}
