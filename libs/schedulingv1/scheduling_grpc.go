package schedulingv1

import (
	"context"

	"github.com/md-rashed-zaman/elevacare/libs/grpcx"
	"google.golang.org/grpc"
)

type SchedulingServiceClient interface {
	GetSchedule(ctx context.Context, in *GetScheduleRequest, opts ...grpc.CallOption) (*GetScheduleResponse, error)
	GetEvent(ctx context.Context, in *GetEventRequest, opts ...grpc.CallOption) (*Event, error)
}

type schedulingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSchedulingServiceClient(cc grpc.ClientConnInterface) SchedulingServiceClient {
	return &schedulingServiceClient{cc: cc}
}

func (c *schedulingServiceClient) GetSchedule(ctx context.Context, in *GetScheduleRequest, opts ...grpc.CallOption) (*GetScheduleResponse, error) {
	out := new(GetScheduleResponse)
	if err := c.cc.Invoke(ctx, GetScheduleFullMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulingServiceClient) GetEvent(ctx context.Context, in *GetEventRequest, opts ...grpc.CallOption) (*Event, error) {
	out := new(Event)
	if err := c.cc.Invoke(ctx, GetEventFullMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(grpcx.JSONCodecName)}, opts...)
}

// SchedulingServiceServer is implemented by the scheduling service.
type SchedulingServiceServer interface {
	GetSchedule(context.Context, *GetScheduleRequest) (*GetScheduleResponse, error)
	GetEvent(context.Context, *GetEventRequest) (*Event, error)
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getScheduleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetScheduleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulingServiceServer).GetSchedule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetScheduleFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulingServiceServer).GetSchedule(ctx, req.(*GetScheduleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getEventHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulingServiceServer).GetEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetEventFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulingServiceServer).GetEvent(ctx, req.(*GetEventRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSchedule", Handler: getScheduleHandler},
		{MethodName: "GetEvent", Handler: getEventHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scheduling/v1/scheduling",
}
