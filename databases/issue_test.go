package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/databases/mocks"
	"github.com/civichero/civichero-api/models"
)

func TestIssueDatabaseFindOneDecodesDocument(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	iID := primitive.NewObjectID()
	srHelper.On("Decode", mock.AnythingOfType("**models.Issue")).
		Return(func(v interface{}) error {
			issue := v.(**models.Issue)
			(*issue).ID = iID
			(*issue).Title = "Pothole"
			return nil
		})
	collectionHelper.On("FindOne", mock.Anything, mock.Anything).Return(srHelper)
	dbHelper.On("Collection", "issues").Return(collectionHelper)

	issueDB := databases.NewIssueDatabase(dbHelper)
	issue, err := issueDB.FindOne(context.Background(), bson.M{"_id": iID})

	assert.NoError(t, err)
	assert.Equal(t, "Pothole", issue.Title)
}

func TestIssueDatabaseFindOnePropagatesDecodeError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.AnythingOfType("**models.Issue")).
		Return(func(v interface{}) error {
			return errors.New("mocked-db-error")
		})
	collectionHelper.On("FindOne", mock.Anything, mock.Anything).Return(srHelper)
	dbHelper.On("Collection", "issues").Return(collectionHelper)

	issueDB := databases.NewIssueDatabase(dbHelper)
	issue, err := issueDB.FindOne(context.Background(), bson.M{"_id": primitive.NewObjectID()})

	assert.Nil(t, issue)
	assert.EqualError(t, err, "mocked-db-error")
}

func TestIssueDatabaseFindDrainsCursor(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.On("All", mock.Anything, mock.AnythingOfType("*[]models.Issue")).
		Return(func(ctx context.Context, results interface{}) error {
			issues := results.(*[]models.Issue)
			*issues = append(*issues, models.Issue{Title: "Pothole"}, models.Issue{Title: "Streetlight"})
			return nil
		})
	cursorHelper.On("Close", mock.Anything).Return(nil)
	collectionHelper.On("Find", mock.Anything, mock.Anything).Return(cursorHelper, nil)
	dbHelper.On("Collection", "issues").Return(collectionHelper)

	issueDB := databases.NewIssueDatabase(dbHelper)
	issues, err := issueDB.Find(context.Background(), bson.M{})

	assert.NoError(t, err)
	assert.Len(t, issues, 2)
	cursorHelper.AssertCalled(t, "Close", mock.Anything)
}

func TestIssueDatabaseFindPropagatesQueryError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("Find", mock.Anything, mock.Anything).
		Return(nil, errors.New("mocked-db-error"))
	dbHelper.On("Collection", "issues").Return(collectionHelper)

	issueDB := databases.NewIssueDatabase(dbHelper)
	issues, err := issueDB.Find(context.Background(), bson.M{})

	assert.Nil(t, issues)
	assert.EqualError(t, err, "mocked-db-error")
}

func TestIssueDatabaseAggregateDecodesRows(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.On("All", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, results interface{}) error {
			populated := results.(*[]models.IssuePopulated)
			*populated = append(*populated, models.IssuePopulated{Title: "Pothole"})
			return nil
		})
	cursorHelper.On("Close", mock.Anything).Return(nil)
	collectionHelper.On("Aggregate", mock.Anything, mock.Anything).Return(cursorHelper, nil)
	dbHelper.On("Collection", "issues").Return(collectionHelper)

	issueDB := databases.NewIssueDatabase(dbHelper)
	issues, err := issueDB.FindPopulated(context.Background(), bson.M{})

	assert.NoError(t, err)
	assert.Len(t, issues, 1)
	assert.Equal(t, "Pothole", issues[0].Title)
}

func TestIssueDatabaseDeleteOneReturnsCount(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)
	dbHelper.On("Collection", "issues").Return(collectionHelper)

	issueDB := databases.NewIssueDatabase(dbHelper)
	count, err := issueDB.DeleteOne(context.Background(), bson.M{"_id": primitive.NewObjectID()})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
