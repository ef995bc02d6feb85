package sqs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/finch-technologies/go-queue/queue/types"
	"github.com/finch-technologies/go-queue/utils"
	"github.com/google/uuid"
)

// sqsBatchLimit is the SQS cap on messages per batch send or receive call.
const sqsBatchLimit = 10

// API is the subset of the SQS client the driver uses, narrowed so tests can
// substitute a fake.
type API interface {
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSDriver is the AWS SQS implementation of the queue driver interface.
type SQSDriver struct {
	client API
	config SQSConfig
}

type SQSConfig struct {
	// Region defaults to AWS_REGION, then af-south-1.
	Region string
	// SQSBaseUrl, when set, derives queue urls as SQSBaseUrl/name without a
	// lookup call. Defaults to AWS_SQS_BASE_URL.
	SQSBaseUrl string
	// Endpoint overrides the AWS endpoint, used for localstack and elasticmq.
	Endpoint string
	// Client substitutes a preconfigured client, used by tests.
	Client API
}

func getConfig(config ...SQSConfig) SQSConfig {
	defaultConfig := SQSConfig{
		Region:     utils.StringOrDefault(os.Getenv("AWS_REGION"), "af-south-1"),
		SQSBaseUrl: os.Getenv("AWS_SQS_BASE_URL"),
	}

	if len(config) == 0 {
		return defaultConfig
	}

	cfg := config[0]

	cfg.Region = utils.StringOrDefault(cfg.Region, defaultConfig.Region)
	cfg.SQSBaseUrl = utils.StringOrDefault(cfg.SQSBaseUrl, defaultConfig.SQSBaseUrl)

	return cfg
}

// New initializes the driver. A Client in the config bypasses AWS SDK config
// loading entirely.
func New(config ...SQSConfig) (*SQSDriver, error) {
	cfg := getConfig(config...)

	if cfg.Client != nil {
		return &SQSDriver{client: cfg.Client, config: cfg}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(cfg.Region))

	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	var client *sqs.Client

	if cfg.Endpoint != "" {
		client = sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	} else {
		client = sqs.NewFromConfig(awsCfg)
	}

	return &SQSDriver{client: client, config: cfg}, nil
}

func (q *SQSDriver) BatchLimit() int {
	return sqsBatchLimit
}

// Resolve maps a queue name to its URL. With a base url configured the URL
// is derived locally without a network call, otherwise it is looked up,
// optionally creating the queue. CreateQueue is idempotent on the provider
// side for an existing queue with identical configuration.
func (q *SQSDriver) Resolve(ctx context.Context, queue string, createIfMissing bool) (string, error) {
	if q.config.SQSBaseUrl != "" {
		return fmt.Sprintf("%s/%s", q.config.SQSBaseUrl, queue), nil
	}

	if createIfMissing {
		resp, err := q.client.CreateQueue(ctx, &sqs.CreateQueueInput{
			QueueName: aws.String(queue),
		})

		if err != nil {
			return "", fmt.Errorf("failed to create queue: %w", err)
		}

		return aws.ToString(resp.QueueUrl), nil
	}

	resp, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queue),
	})

	if err != nil {
		var notFound *sqstypes.QueueDoesNotExist
		if errors.As(err, &notFound) {
			return "", types.ErrQueueUnavailable
		}

		return "", fmt.Errorf("failed to get queue url: %w", err)
	}

	return aws.ToString(resp.QueueUrl), nil
}

func getEnqueueOptions(options ...types.EnqueueOptions) types.EnqueueOptions {
	if len(options) == 0 {
		return types.EnqueueOptions{}
	}

	return options[0]
}

// Send submits one message and returns its provider assigned id.
func (q *SQSDriver) Send(ctx context.Context, handle string, body string, options ...types.EnqueueOptions) (string, error) {
	opts := getEnqueueOptions(options...)

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(handle),
		MessageBody: aws.String(body),
	}

	// Group and deduplication ids only apply to FIFO queues, standard queues
	// reject them
	if opts.GroupId != "" {
		input.MessageGroupId = aws.String(opts.GroupId)
	}

	if opts.DeduplicationId != "" {
		input.MessageDeduplicationId = aws.String(opts.DeduplicationId)
	}

	if opts.Delay > 0 {
		input.DelaySeconds = int32(opts.Delay.Seconds())
	}

	if len(opts.Attributes) > 0 {
		input.MessageAttributes = toMessageAttributes(opts.Attributes)
	}

	resp, err := q.client.SendMessage(ctx, input)

	if err != nil {
		return "", fmt.Errorf("failed to enqueue message: %w", err)
	}

	return aws.ToString(resp.MessageId), nil
}

// SendBatch submits up to ten messages in one call and returns their ids in
// input order.
func (q *SQSDriver) SendBatch(ctx context.Context, handle string, bodies []string, options ...types.EnqueueOptions) ([]string, error) {
	if len(bodies) == 0 {
		return nil, nil
	}

	if len(bodies) > sqsBatchLimit {
		return nil, fmt.Errorf("batch of %d exceeds the sqs limit of %d", len(bodies), sqsBatchLimit)
	}

	opts := getEnqueueOptions(options...)

	entries := make([]sqstypes.SendMessageBatchRequestEntry, len(bodies))
	entryIds := make([]string, len(bodies))

	for i, body := range bodies {
		entryId := uuid.New().String()
		entryIds[i] = entryId

		entry := sqstypes.SendMessageBatchRequestEntry{
			Id:          aws.String(entryId),
			MessageBody: aws.String(body),
		}

		if opts.GroupId != "" {
			entry.MessageGroupId = aws.String(opts.GroupId)
		}

		if opts.DeduplicationId != "" {
			entry.MessageDeduplicationId = aws.String(fmt.Sprintf("%s-%d", opts.DeduplicationId, i))
		}

		if opts.Delay > 0 {
			entry.DelaySeconds = int32(opts.Delay.Seconds())
		}

		if len(opts.Attributes) > 0 {
			entry.MessageAttributes = toMessageAttributes(opts.Attributes)
		}

		entries[i] = entry
	}

	resp, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(handle),
		Entries:  entries,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to enqueue batch: %w", err)
	}

	if len(resp.Failed) > 0 {
		return nil, fmt.Errorf("failed to enqueue %d of %d messages: %s", len(resp.Failed), len(bodies), aws.ToString(resp.Failed[0].Message))
	}

	// Successful entries can come back in any order, map them back to input
	// order via the entry ids
	idsByEntry := make(map[string]string, len(resp.Successful))

	for _, entry := range resp.Successful {
		idsByEntry[aws.ToString(entry.Id)] = aws.ToString(entry.MessageId)
	}

	return utils.Map(entryIds, func(entryId string) string {
		return idsByEntry[entryId]
	}), nil
}

// Receive long polls for up to batchSize messages. A zero lock leaves the
// queue's default visibility timeout in place, sub second locks truncate to
// zero and do the same.
func (q *SQSDriver) Receive(ctx context.Context, handle string, batchSize int, lock time.Duration) ([]types.ReceivedMessage, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(handle),
		MaxNumberOfMessages: int32(batchSize),
		WaitTimeSeconds:     int32(types.DefaultWaitTime.Seconds()),
		MessageAttributeNames: []string{
			string(sqstypes.QueueAttributeNameAll),
		},
		AttributeNames: []sqstypes.QueueAttributeName{
			sqstypes.QueueAttributeNameAll,
		},
	}

	// SQS only accepts whole seconds for the visibility timeout
	if seconds := int32(lock.Seconds()); seconds > 0 {
		input.VisibilityTimeout = seconds
	}

	// CRITICAL: Use background context for AWS call to prevent message loss during shutdown.
	// If the parent context is cancelled mid-request, AWS may have already dequeued messages
	// but they would be lost until visibility timeout expires. Let the AWS call complete.
	resp, err := q.client.ReceiveMessage(context.Background(), input)

	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	if len(resp.Messages) == 0 {
		return nil, nil
	}

	messages := make([]types.ReceivedMessage, len(resp.Messages))

	for i, message := range resp.Messages {
		approximateReceiveCount := 0

		if countStr, ok := message.Attributes["ApproximateReceiveCount"]; ok {
			if count, err := strconv.Atoi(countStr); err == nil {
				approximateReceiveCount = count
			}
		}

		messages[i] = types.ReceivedMessage{
			MessageId:               aws.ToString(message.MessageId),
			ReceiptHandle:           aws.ToString(message.ReceiptHandle),
			Body:                    aws.ToString(message.Body),
			Attributes:              fromMessageAttributes(message.MessageAttributes),
			ReceivedAt:              time.Now(),
			ApproximateReceiveCount: approximateReceiveCount,
		}
	}

	return messages, nil
}

// Delete removes one delivery by its receipt handle.
func (q *SQSDriver) Delete(ctx context.Context, handle string, receiptHandle string) error {
	// Deletes also run on a background context so a shutdown cannot abort an
	// acknowledgement already on the wire
	_, err := q.client.DeleteMessage(context.Background(), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(handle),
		ReceiptHandle: aws.String(receiptHandle),
	})

	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

// Count returns the approximate number of visible messages in the queue.
func (q *SQSDriver) Count(ctx context.Context, handle string) (int, error) {
	resp, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(handle),
		AttributeNames: []sqstypes.QueueAttributeName{
			sqstypes.QueueAttributeNameApproximateNumberOfMessages,
		},
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get queue attributes: %w", err)
	}

	countStr := resp.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessages)]
	if countStr == "" {
		return 0, errors.New("queue attribute not found")
	}

	var count int
	fmt.Sscanf(countStr, "%d", &count)

	return count, nil
}

func toMessageAttributes(attributes map[string]string) map[string]sqstypes.MessageAttributeValue {
	result := make(map[string]sqstypes.MessageAttributeValue, len(attributes))

	for key, value := range attributes {
		result[key] = sqstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}

	return result
}

func fromMessageAttributes(attributes map[string]sqstypes.MessageAttributeValue) map[string]string {
	if len(attributes) == 0 {
		return nil
	}

	result := make(map[string]string, len(attributes))

	for key, value := range attributes {
		result[key] = aws.ToString(value.StringValue)
	}

	return result
}
