package repository

import (
	"sync"

	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/database/connection/datastore"
	"veridoc.mx/infrastructure/database/repository/mongo"
)

var userOnce = sync.Once{}

var userRepository mongo.MongoRepository[entities.User]

func UserRepo() *mongo.MongoRepository[entities.User] {
	userOnce.Do(func() {
		userRepository = mongo.MongoRepository[entities.User]{Model: datastore.UserModel}
	})
	return &userRepository
}
