package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "salonbook.booking.v1.BookingService"

// Method names, usable as "/" + ServiceName + "/" + name with ClientConn.Invoke.
const (
	MethodListAvailableSlots      = "ListAvailableSlots"
	MethodCreateAppointment       = "CreateAppointment"
	MethodGetAppointment          = "GetAppointment"
	MethodUpdateAppointmentStatus = "UpdateAppointmentStatus"
	MethodRescheduleAppointment   = "RescheduleAppointment"
	MethodCancelAppointment       = "CancelAppointment"
)

// BookingServiceServer is the RPC surface. Requests and responses are JSON-shaped
// structs so the service needs no generated stubs.
type BookingServiceServer interface {
	ListAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAppointmentStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RescheduleAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler(name string, call func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodListAvailableSlots, BookingServiceServer.ListAvailableSlots),
		unaryHandler(MethodCreateAppointment, BookingServiceServer.CreateAppointment),
		unaryHandler(MethodGetAppointment, BookingServiceServer.GetAppointment),
		unaryHandler(MethodUpdateAppointmentStatus, BookingServiceServer.UpdateAppointmentStatus),
		unaryHandler(MethodRescheduleAppointment, BookingServiceServer.RescheduleAppointment),
		unaryHandler(MethodCancelAppointment, BookingServiceServer.CancelAppointment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salonbook/booking/v1/booking.proto",
}
