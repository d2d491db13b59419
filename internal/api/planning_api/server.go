// Package planning_api exposes the planning feed and service health over the gRPC port and
// the grpc-gateway HTTP mux.
package planning_api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/booking"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

const ServiceName = "discope.planning"

// Server serves the planning feed. It reads bookings through the booking use case only.
type Server struct {
	bookings  booking.BookingUseCase
	health    *health.Server
	marshaler runtime.Marshaler
	protos    runtime.Marshaler
	logger    *zap.Logger
}

func NewServer(bookings booking.BookingUseCase, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		bookings:  bookings,
		health:    health.NewServer(),
		marshaler: &runtime.JSONBuiltin{},
		protos: &runtime.JSONPb{MarshalOptions: protojson.MarshalOptions{
			UseProtoNames:   true,
			EmitUnpopulated: true,
		}},
		logger: logger,
	}
}

// RegisterGRPC installs the health service and reflection.
func (s *Server) RegisterGRPC(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// RegisterGateway adds the HTTP routes to the gateway mux.
func (s *Server) RegisterGateway(mux *runtime.ServeMux) error {
	if err := mux.HandlePath(http.MethodGet, "/healthz", s.healthz); err != nil {
		return err
	}
	return mux.HandlePath(http.MethodGet, "/v1/bookings/{booking_id}/consumptions", s.consumptions)
}

// Shutdown marks every service as not serving.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

type consumptionFeed struct {
	BookingID    int64                `json:"booking_id"`
	Status       string               `json:"status"`
	Consumptions []domain.Consumption `json:"consumptions"`
}

func (s *Server) consumptions(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := strconv.ParseInt(params["booking_id"], 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, status.Error(codes.InvalidArgument, "invalid booking_id"))
		return
	}

	b, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeError(w, toStatus(err))
		return
	}
	items, err := s.bookings.ListConsumptions(r.Context(), id)
	if err != nil {
		s.writeError(w, toStatus(err))
		return
	}
	s.write(w, http.StatusOK, consumptionFeed{BookingID: id, Status: string(b.Status), Consumptions: items})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := s.health.Check(r.Context(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusOK
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}
	s.writeWith(s.protos, w, code, resp)
}

func (s *Server) write(w http.ResponseWriter, code int, v any) {
	s.writeWith(s.marshaler, w, code, v)
}

func (s *Server) writeWith(m runtime.Marshaler, w http.ResponseWriter, code int, v any) {
	data, err := m.Marshal(v)
	if err != nil {
		s.logger.Error("marshal planning response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", m.ContentType(v))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	if st.Code() == codes.Internal {
		s.logger.Error("planning request failed", zap.String("error", st.Message()))
	}
	s.write(w, runtime.HTTPStatusFromCode(st.Code()), map[string]string{"error": st.Message()})
}

// toStatus maps engine errors onto gRPC codes.
func toStatus(err error) error {
	if v, ok := domain.AsValidationError(err); ok {
		return status.Error(codes.InvalidArgument, v.Error())
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrLocked):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
