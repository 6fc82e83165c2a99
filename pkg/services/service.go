package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type (
	Service interface {
		Init() error
		Run(ctx context.Context)
		Stop()
	}
	Services interface {
		AddService(service ...Service)
		Run(ctx context.Context) error
	}
	Manager struct {
		log      Logger
		services []Service
		signals  []os.Signal
	}
)

func NewManager(log Logger) *Manager {
	return &Manager{log: log, signals: []os.Signal{os.Interrupt, syscall.SIGTERM}}
}

func (s *Manager) AddService(service ...Service) {
	s.services = append(s.services, service...)
}

// Run initialises every service in order and starts it, then blocks until a
// termination signal arrives or ctx is done. Services are stopped in reverse
// order. If one fails to initialise, the ones already started are stopped.
func (s *Manager) Run(ctx context.Context) error {
	s.log.Info("going to start %d services", len(s.services))
	for count, service := range s.services {
		if err := service.Init(); err != nil {
			s.stopFirst(count)
			return err
		}
		go service.Run(ctx)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, s.signals...)
	defer signal.Stop(c)

	select {
	case <-c:
	case <-ctx.Done():
	}
	s.stopFirst(len(s.services))

	return nil
}

func (s *Manager) stopFirst(n int) {
	s.log.Info("going to stop")
	for i := n - 1; i >= 0; i-- {
		s.services[i].Stop()
	}
}
