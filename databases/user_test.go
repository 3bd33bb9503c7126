package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/databases/mocks"
	"github.com/civichero/civichero-api/models"
)

func TestUserDatabaseFindOneDecodesDocument(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.AnythingOfType("**models.User")).
		Return(func(v interface{}) error {
			user := v.(**models.User)
			(*user).Name = "Asha"
			(*user).Email = "asha@example.com"
			return nil
		})
	collectionHelper.On("FindOne", mock.Anything, mock.Anything).Return(srHelper)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDB := databases.NewUserDatabase(dbHelper)
	user, err := userDB.FindOne(context.Background(), bson.M{"email": "asha@example.com"})

	assert.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)
}

func TestUserDatabaseUpdateOnePassesResultThrough(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDB := databases.NewUserDatabase(dbHelper)
	result, err := userDB.UpdateOne(context.Background(),
		bson.M{"_id": primitive.NewObjectID()},
		bson.M{"$set": bson.M{"blocked": true}},
	)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), result.MatchedCount)
}

func TestUserDatabaseCountDocumentsPropagatesError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CountDocuments", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("mocked-db-error"))
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDB := databases.NewUserDatabase(dbHelper)
	count, err := userDB.CountDocuments(context.Background(), bson.M{"email": "asha@example.com"})

	assert.Equal(t, int64(0), count)
	assert.EqualError(t, err, "mocked-db-error")
}
