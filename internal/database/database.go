package database

import (
	"clean-care-backend/internal/env"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"gorm.io/gorm"
)

type DynamoDBClient struct {
	svc *dynamodb.Client
}

func NewDynamoDBClient() (*DynamoDBClient, error) {
	region := env.Get(env.AWSRegion)
	credOne := env.Get(env.AWSID)
	credTwo := env.Get(env.AWSSecret)
	credThree := env.Get(env.AWSToken)
	endpoint := env.Get(env.DynamoDBEndpoint)

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if credOne != "" && credTwo != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(credOne, credTwo, credThree)),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	clientOpts := []func(*dynamodb.Options){}
	if endpoint != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	db := dynamodb.NewFromConfig(cfg, clientOpts...)
	return &DynamoDBClient{
		svc: db,
	}, nil
}

// Database holds the store selected by STORE_DRIVER. Exactly one of Client
// and SQL is set.
type Database struct {
	Driver string
	Client *DynamoDBClient
	SQL    *gorm.DB
}

func NewDatabase() (*Database, error) {
	driver := env.Driver()
	switch driver {
	case env.DriverDynamoDB:
		dbClient, err := NewDynamoDBClient()
		if err != nil {
			return nil, fmt.Errorf("init dynamodb client: %w", err)
		}
		return &Database{Driver: driver, Client: dbClient}, nil
	case env.DriverPostgres, env.DriverSQLite:
		sqlDB, err := OpenSQL(driver, env.Get(env.DatabaseDSN))
		if err != nil {
			return nil, fmt.Errorf("init sql store: %w", err)
		}
		if err := Migrate(sqlDB); err != nil {
			return nil, err
		}
		return &Database{Driver: driver, SQL: sqlDB}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func (d *Database) IsSQL() bool {
	return d != nil && d.SQL != nil
}
