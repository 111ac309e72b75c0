package api

import (
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	attendanceapp "github.com/burenotti/go_routines_backend/internal/app/attendance"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	profileapp "github.com/burenotti/go_routines_backend/internal/app/profile"
	routineapp "github.com/burenotti/go_routines_backend/internal/app/routine"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"log/slog"
	"net"
	"strconv"
	"time"
)

type Option func(*Server)

func Addr(host string, port int) Option {
	return func(s *Server) {
		s.addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

func Timeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.timeouts.read = read
		}
		if write > 0 {
			s.timeouts.write = write
		}
		if idle > 0 {
			s.timeouts.idle = idle
		}
	}
}

func Logger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func DBContext(db storage.DBContext) Option {
	return func(s *Server) {
		s.db = db
	}
}

func Authorizer(a *identity.Authorizer) Option {
	return func(s *Server) {
		s.authorizer = a
	}
}

func RoutineService(service *routineapp.Service) Option {
	return func(s *Server) {
		s.routineService = service
	}
}

func AttendanceService(service *attendanceapp.Service) Option {
	return func(s *Server) {
		s.attendanceService = service
	}
}

func ProfileService(service *profileapp.Service) Option {
	return func(s *Server) {
		s.profileService = service
	}
}

func MessageBus(bus unitofwork.MessageBus) Option {
	return func(s *Server) {
		s.msgBus = bus
	}
}
