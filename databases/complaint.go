package databases

// go generate: mockery --name ComplaintDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/models"
)

const complaintName = "complaints"

// ComplaintDatabase contains the methods to use with the complaints collection
type ComplaintDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Complaint, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Complaint, error)
	InsertOne(context.Context, models.Complaint) (interface{}, error)
	UpdateOne(context.Context, interface{}, interface{}) error
	CountDocuments(context.Context, interface{}) (int64, error)
}

type complaintDatabase struct {
	db DatabaseHelper
}

// NewComplaintDatabase initializes a new instance of complaint database with the provided db connection
func NewComplaintDatabase(db DatabaseHelper) ComplaintDatabase {
	return &complaintDatabase{
		db: db,
	}
}

func (c *complaintDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Complaint, error) {
	complaint := &models.Complaint{}
	err := c.db.Collection(complaintName).FindOne(ctx, filter, opts...).Decode(&complaint)
	if err != nil {
		return nil, err
	}
	return complaint, nil
}

func (c *complaintDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Complaint, error) {
	var complaints []models.Complaint
	cur, err := c.db.Collection(complaintName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&complaints)
	if err != nil {
		return nil, err
	}
	return complaints, nil
}

func (c *complaintDatabase) InsertOne(ctx context.Context, complaint models.Complaint) (interface{}, error) {
	res, err := c.db.Collection(complaintName).InsertOne(ctx, complaint)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (c *complaintDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := c.db.Collection(complaintName).UpdateOne(ctx, filter, update)
	return err
}

func (c *complaintDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(complaintName).CountDocuments(ctx, filter)
}
