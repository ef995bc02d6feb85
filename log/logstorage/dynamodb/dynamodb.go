package dynamodb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/finch-technologies/go-queue/adapters"
	"github.com/finch-technologies/go-queue/config/database"
	"github.com/finch-technologies/go-queue/env"
	"github.com/google/uuid"
)

// DynamoDB BatchWriteItem allows a maximum of 25 items per request
const batchWriteLimit = 25

// LogStore writes log events to a dynamo table with a 24 hour TTL. Client
// setup errors are held and surfaced on first use, logging must not fail
// hard at startup.
type LogStore struct {
	db        *dynamodb.Client
	tableName string
	initErr   error
}

type logRecord struct {
	Timestamp      int64  `dynamodbav:"timestamp"`
	UniqueId       string `dynamodbav:"unique_id"`
	Event          string `dynamodbav:"event"`
	ExpirationTime int64  `dynamodbav:"expiration_time"`
}

func New(dbName database.Name) *LogStore {
	client, err := adapters.GetDynamoClient(os.Getenv("AWS_REGION"))

	return &LogStore{
		db:        client,
		tableName: getTableName(string(dbName)),
		initErr:   err,
	}
}

func (d *LogStore) Write(p []byte) (n int, err error) {
	if d.initErr != nil {
		return 0, d.initErr
	}

	item, err := attributevalue.MarshalMap(logRecord{
		Timestamp:      time.Now().Unix(),
		UniqueId:       uuid.New().String(),
		Event:          string(p),
		ExpirationTime: time.Now().Add(24 * time.Hour).Unix(),
	})
	if err != nil {
		return 0, err
	}

	_, err = d.db.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *LogStore) FetchListBatch(listName string, count int64) ([]string, error) {
	result, err := d.scanReturn(count)
	if err != nil {
		return nil, err
	}

	var eventsJSON []string
	for _, item := range result.Items {
		var record logRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue
		}
		eventsJSON = append(eventsJSON, record.Event)
	}

	return eventsJSON, nil
}

func (d *LogStore) scanReturn(count int64) (*dynamodb.ScanOutput, error) {
	if d.initErr != nil {
		return nil, d.initErr
	}

	result, err := d.db.Scan(context.Background(), &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
		Limit:     aws.Int32(int32(count)),
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (d *LogStore) DeleteListBatch(listName string, count int64) error {
	scan, err := d.scanReturn(count)
	if err != nil {
		return err
	}

	writeRequests := make([]dynamotypes.WriteRequest, 0, len(scan.Items))

	for _, item := range scan.Items {
		var record logRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue
		}

		writeRequests = append(writeRequests, dynamotypes.WriteRequest{
			DeleteRequest: &dynamotypes.DeleteRequest{
				Key: map[string]dynamotypes.AttributeValue{
					"unique_id": &dynamotypes.AttributeValueMemberS{Value: record.UniqueId},
				},
			},
		})

		if len(writeRequests) == batchWriteLimit {
			d.batchDelete(writeRequests)
			writeRequests = writeRequests[:0] // Reset slice
		}
	}

	// Delete remaining items
	if len(writeRequests) > 0 {
		d.batchDelete(writeRequests)
	}

	return nil
}

func (d *LogStore) batchDelete(writeRequests []dynamotypes.WriteRequest) error {
	_, err := d.db.BatchWriteItem(context.Background(), &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]dynamotypes.WriteRequest{
			d.tableName: writeRequests,
		},
	})

	if err != nil {
		return err
	}

	return nil
}

func getTableName(suffix string) string {
	prefix := env.GetOrDefault("LOG_TABLE_PREFIX", "queue")

	return fmt.Sprintf("%s.%s.%s", prefix, env.Get(), suffix)
}
