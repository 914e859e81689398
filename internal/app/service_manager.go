package app

import (
	"sync"

	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
)

// ServiceManager 管理进程内需要按序关闭的资源
type ServiceManager struct {
	mu       sync.Mutex
	services []managedService
	shutdown bool
}

type managedService struct {
	name  string
	close func() error
}

// NewServiceManager 创建服务管理器
func NewServiceManager() *ServiceManager {
	return &ServiceManager{}
}

// Register 登记一个资源，Shutdown 时按登记的逆序关闭
func (m *ServiceManager) Register(name string, closeFn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, managedService{name: name, close: closeFn})
}

// Names 已登记的资源名
func (m *ServiceManager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.services))
	for _, s := range m.services {
		names = append(names, s.name)
	}
	return names
}

// Shutdown 关闭所有资源，返回第一个错误；重复调用无副作用
func (m *ServiceManager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	services := m.services
	m.mu.Unlock()

	var first error
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		if err := s.close(); err != nil {
			logger.WithField("service", s.name).WithError(err).Warn("关闭服务失败")
			if first == nil {
				first = err
			}
			continue
		}
		logger.WithField("service", s.name).Info("服务已关闭")
	}
	return first
}
