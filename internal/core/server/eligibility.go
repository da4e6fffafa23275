package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/couponkeeper/internal/core/api"
	"github.com/solatis/couponkeeper/internal/types"
)

/*
 * Eligibility API transport.
 *
 * One unary method whose request and response are google.protobuf.Struct.
 * The Struct carries the JSON shape of api.EvaluateRequest / api.Evaluation,
 * bridged through protojson, so clients need no generated stubs.
 *
 * Error mapping:
 *   - malformed body, cart validation errors -> INVALID_ARGUMENT
 *   - unknown coupon                         -> NOT_FOUND
 *   - request timeout                        -> DEADLINE_EXCEEDED
 *   - anything else (database)               -> UNAVAILABLE
 * A coupon that is not applicable is a normal response, not an error.
 */

// Service and method names.
const (
	ServiceName    = "couponkeeper.eligibility.v1.EligibilityAPI"
	EvaluateMethod = "/" + ServiceName + "/Evaluate"
)

// Evaluator evaluates a coupon against a cart.
type Evaluator interface {
	Evaluate(ctx context.Context, req *api.EvaluateRequest) (*api.Evaluation, error)
}

// EligibilityAPIServer is the server side of the eligibility API.
type EligibilityAPIServer interface {
	Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var eligibilityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EligibilityAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "couponkeeper/eligibility/v1/eligibility.proto",
}

// RegisterEligibilityAPI registers srv on s.
func RegisterEligibilityAPI(s grpc.ServiceRegistrar, srv EligibilityAPIServer) {
	s.RegisterService(&eligibilityServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EligibilityAPIServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EligibilityAPIServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type eligibilityServer struct {
	eval    Evaluator
	timeout time.Duration
}

func (s *eligibilityServer) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.EvaluateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	eval, err := s.eval.Evaluate(ctx, &req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	out, err := toStruct(eval)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode evaluation")
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func toStatus(ctx context.Context, err error) error {
	switch {
	case api.IsClientError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrCouponNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "evaluation timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("evaluation failed")
		return status.Error(codes.Unavailable, "coupon store unavailable")
	}
}

// fromStruct decodes a Struct into dst through its JSON form.
func fromStruct(in *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// toStruct encodes src as a Struct through its JSON form.
func toStruct(src any) (*structpb.Struct, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
