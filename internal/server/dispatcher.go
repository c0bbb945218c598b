package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

// methodFunc answers one JSON-RPC method
type methodFunc func(ctx context.Context, params json.RawMessage) (any, *Error)

// Dispatcher routes requests by method and, for tools/call, by tool name
type Dispatcher struct {
	registry  *registry.Registry
	validator *Validator
	logger    *logrus.Logger
	errorLog  *tools.ErrorLogger
	info      mcp.Implementation
	methods   map[string]methodFunc
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithErrorLogger records failed tool calls to l
func WithErrorLogger(l *tools.ErrorLogger) Option {
	return func(d *Dispatcher) {
		d.errorLog = l
	}
}

// NewDispatcher builds a dispatcher over the tools registered in reg. The
// registry must be fully populated, since input schemas are compiled here.
func NewDispatcher(reg *registry.Registry, logger *logrus.Logger, info mcp.Implementation, opts ...Option) (*Dispatcher, error) {
	validator, err := NewValidator(reg.List())
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		registry:  reg,
		validator: validator,
		logger:    logger,
		info:      info,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.methods = map[string]methodFunc{
		"initialize": d.initialize,
		"tools/list": d.listTools,
		"tools/call": d.callTool,
	}
	return d, nil
}

// Handle processes one request. It returns nil for notifications, which never get a response.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) *Response {
	result, rpcErr := d.route(ctx, req)

	if req.IsNotification() {
		if rpcErr != nil {
			d.logger.WithFields(logrus.Fields{
				"method": req.Method,
				"code":   rpcErr.Code,
			}).Debug("Notification failed: " + rpcErr.Message)
		}
		return nil
	}

	resp := &Response{JSONRPC: JSONRPCVersion, ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (d *Dispatcher) route(ctx context.Context, req *Request) (any, *Error) {
	method, ok := d.methods[req.Method]
	if !ok {
		return nil, NewError(CodeMethodNotFound, "Method not found: %s", req.Method)
	}
	return method(ctx, req.Params)
}

func (d *Dispatcher) initialize(_ context.Context, params json.RawMessage) (any, *Error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, NewError(CodeInvalidParams, "Invalid initialize params: %v", err)
		}
	}

	version := p.ProtocolVersion
	if version == "" {
		version = mcp.LATEST_PROTOCOL_VERSION
	}

	d.logger.WithFields(logrus.Fields{
		"client":           p.ClientInfo.Name,
		"client_version":   p.ClientInfo.Version,
		"protocol_version": version,
	}).Info("Client initialised")

	return InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      d.info,
	}, nil
}

func (d *Dispatcher) listTools(context.Context, json.RawMessage) (any, *Error) {
	return map[string]any{"tools": d.registry.List()}, nil
}

func (d *Dispatcher) callTool(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p CallToolParams
	if len(params) == 0 {
		return nil, NewError(CodeInvalidParams, "Missing params for tools/call")
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(CodeInvalidParams, "Invalid tools/call params: %v", err)
	}

	tool, ok := d.registry.Get(p.Name)
	if !ok {
		return nil, NewError(CodeInternalError, "Unknown tool: %s", p.Name)
	}

	args := p.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if err := d.validator.Validate(p.Name, args); err != nil {
		d.errorLog.Log(p.Name, args, CodeInvalidParams, err)
		return nil, NewError(CodeInvalidParams, "%s", err.Error())
	}

	logger := d.logger.WithField("tool", p.Name)
	logger.Debug("Executing tool")

	result, err := d.execute(ctx, tool, args)
	if err != nil {
		logger.WithError(err).Warn("Tool execution failed")
		d.errorLog.Log(p.Name, args, CodeInternalError, err)
		return nil, NewError(CodeInternalError, "%s", err.Error())
	}
	if result == nil {
		result = mcp.NewToolResultText("")
	}
	return result, nil
}

// execute runs a tool, turning a panic into an ordinary error
func (d *Dispatcher) execute(ctx context.Context, tool tools.Tool, args map[string]any) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("stack", string(debug.Stack())).Error("Tool panicked")
			result = nil
			if e, ok := r.(error); ok {
				err = fmt.Errorf("tool panicked: %w", e)
			} else {
				err = fmt.Errorf("tool panicked: %v", r)
			}
		}
	}()

	result, err = tool.Execute(ctx, d.logger, args)
	if err != nil && errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}
	return result, err
}
