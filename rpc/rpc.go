package rpc

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	eParser "github.com/go-errors/errors"
	"github.com/segmentio/ksuid"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 20 * time.Second

// Client calls a marketplace JSON-RPC server.
type Client struct {
	url     string
	timeout time.Duration
	http    *fasthttp.Client
	nextID  uint64
}

// Option configures a Client.
type Option func(*Client)

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) {
		c.http.Dial = dial
	}
}

// WithTimeout sets the per call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient returns a client of the server at url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		timeout: defaultTimeout,
		http:    &fasthttp.Client{Name: "marketctl"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes method with params signed by signers and decodes the result
// into result. Each signed call carries a fresh nonce, so retrying a call
// never repeats a previous one. A server side failure is returned as *Error.
func (c *Client) Call(method string, params interface{}, result interface{}, signers ...solana.PrivateKey) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	id := atomic.AddUint64(&c.nextID, 1)
	req := Request{
		JSONRPC: "2.0",
		ID:      []byte(fmt.Sprintf("%d", id)),
		Method:  method,
		Params:  raw,
	}

	if len(signers) > 0 {
		req.Nonce = ksuid.New().String()
		req.Expires = time.Now().Add(SignatureTTL).Unix()
		if req.Signatures, err = Sign(method, req.Nonce, req.Expires, raw, signers...); err != nil {
			return err
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(resp)

	httpReq.SetRequestURI(c.url)
	httpReq.Header.SetMethod("POST")
	httpReq.Header.SetContentType("application/json")
	httpReq.SetBody(body)

	if err := c.http.DoTimeout(httpReq, resp, c.timeout); err != nil {
		return eParser.Wrap(err, 0)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("%s: unexpected http status %d: %s", method, resp.StatusCode(), resp.Body())
	}

	var r Response
	if err := json.Unmarshal(resp.Body(), &r); err != nil {
		return fmt.Errorf("%s: malformed response: %w", method, err)
	}

	if r.Error != nil {
		return r.Error
	}

	if result == nil || len(r.Result) == 0 {
		return nil
	}

	return json.Unmarshal(r.Result, result)
}
