package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var (
	dynamoMu     sync.Mutex
	dynamoClient *dynamodb.Client
)

// GetDynamoClient returns the shared dynamo client, creating it on first
// use with the default AWS credential chain.
func GetDynamoClient(region string) (*dynamodb.Client, error) {
	dynamoMu.Lock()
	defer dynamoMu.Unlock()

	if dynamoClient != nil {
		return dynamoClient, nil
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	dynamoClient = dynamodb.NewFromConfig(awsConfig)

	return dynamoClient, nil
}
