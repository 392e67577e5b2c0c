// Package glue implements the execution capability on top of AWS Glue job runs.
package glue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/job"
)

// API is the subset of the Glue SDK client the runner calls.
type API interface {
	StartJobRun(ctx context.Context, in *glue.StartJobRunInput, optFns ...func(*glue.Options)) (*glue.StartJobRunOutput, error)
	GetJobRun(ctx context.Context, in *glue.GetJobRunInput, optFns ...func(*glue.Options)) (*glue.GetJobRunOutput, error)
	BatchStopJobRun(ctx context.Context, in *glue.BatchStopJobRunInput, optFns ...func(*glue.Options)) (*glue.BatchStopJobRunOutput, error)
}

// Credentials mirrors the aws section of the runner config.
type Credentials struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Client adapts Glue to execution.Client and execution.Stopper.
type Client struct {
	api API

	// Glue addresses runs by job name plus run id, so remember which job each
	// handle belongs to.
	mu   sync.RWMutex
	runs map[execution.RunHandle]string
}

// New wraps an existing Glue API implementation.
func New(api API) (*Client, error) {
	if api == nil {
		return nil, execution.ErrNoClient
	}
	return &Client{api: api, runs: make(map[execution.RunHandle]string)}, nil
}

// NewFromCredentials loads the AWS configuration and builds a Glue client.
// Static keys take precedence; otherwise the default credential chain (with
// the optional shared-config profile) is used.
func NewFromCredentials(ctx context.Context, creds Credentials) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(creds.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile := strings.TrimSpace(creds.Profile); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		provider := credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("glue: load aws config: %w", err)
	}
	return New(glue.NewFromConfig(cfg))
}

// Start submits a job run with the resolved worker settings and arguments.
func (c *Client) Start(ctx context.Context, spec job.Spec) (execution.RunHandle, error) {
	if spec.NumberOfWorkers > job.MaxNumberOfWorkers {
		return "", fmt.Errorf("glue: start %s: worker count %d out of range", spec.Name, spec.NumberOfWorkers)
	}
	in := &glue.StartJobRunInput{
		JobName:         aws.String(spec.Name),
		WorkerType:      types.WorkerType(spec.WorkerType),
		NumberOfWorkers: aws.Int32(int32(spec.NumberOfWorkers)),
		Arguments:       spec.Arguments,
	}
	out, err := c.api.StartJobRun(ctx, in)
	if err != nil {
		return "", err
	}
	runID := aws.ToString(out.JobRunId)
	if runID == "" {
		return "", fmt.Errorf("glue: start %s: empty run id", spec.Name)
	}
	handle := execution.RunHandle(runID)
	c.mu.Lock()
	c.runs[handle] = spec.Name
	c.mu.Unlock()
	return handle, nil
}

// Poll reads the current state of a run started by this client. A handle is
// forgotten once its run reaches a terminal state.
func (c *Client) Poll(ctx context.Context, handle execution.RunHandle) (job.State, error) {
	name, err := c.jobFor(handle)
	if err != nil {
		return "", err
	}
	out, err := c.api.GetJobRun(ctx, &glue.GetJobRunInput{
		JobName: aws.String(name),
		RunId:   aws.String(string(handle)),
	})
	if err != nil {
		return "", err
	}
	if out.JobRun == nil {
		return "", fmt.Errorf("glue: run %s of %s has no details", handle, name)
	}
	state := MapState(out.JobRun.JobRunState)
	if state.Terminal() {
		c.mu.Lock()
		delete(c.runs, handle)
		c.mu.Unlock()
	}
	return state, nil
}

// Stop asks Glue to stop a run. Per-run errors reported by the batch call are
// returned as a single error.
func (c *Client) Stop(ctx context.Context, handle execution.RunHandle) error {
	name, err := c.jobFor(handle)
	if err != nil {
		return err
	}
	out, err := c.api.BatchStopJobRun(ctx, &glue.BatchStopJobRunInput{
		JobName:   aws.String(name),
		JobRunIds: []string{string(handle)},
	})
	if err != nil {
		return err
	}
	var errs []error
	for _, runErr := range out.Errors {
		msg := "unknown error"
		if runErr.ErrorDetail != nil && runErr.ErrorDetail.ErrorMessage != nil {
			msg = *runErr.ErrorDetail.ErrorMessage
		}
		errs = append(errs, fmt.Errorf("glue: stop %s run %s: %s", name, aws.ToString(runErr.JobRunId), msg))
	}
	return errors.Join(errs...)
}

func (c *Client) jobFor(handle execution.RunHandle) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.runs[handle]
	if !ok {
		return "", fmt.Errorf("glue: unknown run handle %q", handle)
	}
	return name, nil
}

// MapState folds the Glue run states into the runner's state set. Any state
// that is not known to be terminal keeps the monitor polling.
func MapState(state types.JobRunState) job.State {
	switch state {
	case types.JobRunStateSucceeded:
		return job.StateSucceeded
	case types.JobRunStateTimeout:
		return job.StateTimedOut
	case types.JobRunStateFailed, types.JobRunStateError, types.JobRunStateStopped, types.JobRunStateExpired:
		return job.StateFailed
	default:
		return job.StateRunning
	}
}
