// Package pinecone queries a Pinecone serverless index through the official
// Go SDK.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"profsync/internal/domain"
)

const (
	defaultNamespace = "ns1"
	defaultTimeout   = 30 * time.Second
)

// HTTPStatusError carries the HTTP equivalent of a failed data-plane call.
type HTTPStatusError struct {
	StatusCode int
	Code       codes.Code
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("pinecone: unexpected status %d (%s): %v", e.StatusCode, e.Code, e.Err)
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type controlPlane interface {
	DescribeIndex(ctx context.Context, idxName string) (*pinecone.Index, error)
}

type dataPlane interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
}

// dialFunc opens a data-plane connection to host scoped to namespace.
type dialFunc func(host, namespace string) (dataPlane, error)

type settings struct {
	host       string
	namespace  string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*settings)

// WithHost pins the data-plane host and skips the control-plane lookup.
func WithHost(host string) Option {
	return func(s *settings) {
		s.host = strings.TrimSpace(host)
	}
}

func WithNamespace(namespace string) Option {
	return func(s *settings) {
		if ns := strings.TrimSpace(namespace); ns != "" {
			s.namespace = ns
		}
	}
}

// WithHTTPClient sets the client used for control-plane REST calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *settings) {
		s.httpClient = httpClient
	}
}

// WithTimeout bounds each query. The data plane speaks gRPC, so the HTTP
// client timeout does not apply to it.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Client runs similarity queries against one namespace of one index.
type Client struct {
	indexName string
	host      string
	namespace string
	timeout   time.Duration
	control   controlPlane
	dial      dialFunc

	mu   sync.Mutex
	conn dataPlane
}

func NewClient(apiKey, indexName string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pinecone: api key must not be empty")
	}
	s := settings{namespace: defaultNamespace, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	params := pinecone.NewClientParams{ApiKey: apiKey}
	if s.httpClient != nil {
		params.RestClient = s.httpClient
	}
	pc, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("pinecone: create client: %w", err)
	}
	dial := func(host, namespace string) (dataPlane, error) {
		conn, err := pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return newClient(pc, dial, indexName, s)
}

func newClient(control controlPlane, dial dialFunc, indexName string, s settings) (*Client, error) {
	c := &Client{
		indexName: strings.TrimSpace(indexName),
		host:      s.host,
		namespace: s.namespace,
		timeout:   s.timeout,
		control:   control,
		dial:      dial,
	}
	if c.indexName == "" && c.host == "" {
		return nil, errors.New("pinecone: index name or host must be set")
	}
	return c, nil
}

// Search returns the topK nearest matches to vector in the order the index
// ranked them.
func (c *Client) Search(ctx context.Context, vector domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error) {
	if len(vector) == 0 {
		return nil, errors.New("pinecone: query vector must not be empty")
	}
	if topK <= 0 {
		return nil, errors.New("pinecone: topK must be positive")
	}
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: query request failed: %w", wrapStatus(err))
	}
	if res == nil {
		return []domain.SearchMatch{}, nil
	}

	matches := make([]domain.SearchMatch, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		fields := m.Vector.Metadata.GetFields()
		matches = append(matches, domain.SearchMatch{
			ID:      m.Vector.Id,
			Review:  metaString(fields, "review"),
			Subject: metaString(fields, "subject"),
			Stars:   metaFloat(fields, "stars"),
			Score:   m.Score,
		})
	}
	return matches, nil
}

// connection returns the data-plane connection, describing the index once per
// process when no host is pinned. A failed lookup is not cached.
func (c *Client) connection(ctx context.Context) (dataPlane, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}

	host := c.host
	if host == "" {
		idx, err := c.control.DescribeIndex(ctx, c.indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone: describe index %q: %w", c.indexName, err)
		}
		if idx == nil || strings.TrimSpace(idx.Host) == "" {
			return nil, fmt.Errorf("pinecone: index %q has no host", c.indexName)
		}
		host = idx.Host
	}

	conn, err := c.dial(hostAddr(host), c.namespace)
	if err != nil {
		return nil, fmt.Errorf("pinecone: connect to %s: %w", host, err)
	}
	c.conn = conn
	return conn, nil
}

func hostAddr(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

func wrapStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &HTTPStatusError{StatusCode: httpStatus(st.Code()), Code: st.Code(), Err: err}
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.OutOfRange, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func metaString(fields map[string]*structpb.Value, key string) string {
	switch v := fields[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(v.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(v.BoolValue)
	default:
		return ""
	}
}

// metaFloat reads a numeric field, accepting numbers stored as strings.
func metaFloat(fields map[string]*structpb.Value, key string) float64 {
	switch v := fields[key].GetKind().(type) {
	case *structpb.Value_NumberValue:
		return v.NumberValue
	case *structpb.Value_StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.StringValue), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
