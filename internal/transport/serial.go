package transport

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaudRate matches the anemometer's factory configuration.
const DefaultBaudRate = 115200

// DefaultReadTimeout bounds a single serial read so the ingestion loop can
// observe cancellation between cycles.
const DefaultReadTimeout = time.Second

// AutoPort selects the first detected USB-serial device.
const AutoPort = "auto"

// ErrNoPortsFound is returned when auto-detection finds no candidate
// serial devices.
var ErrNoPortsFound = errors.New("no serial ports found")

// SerialConfig describes how to open the anemometer's serial port.
type SerialConfig struct {
	Port        string // device path, or AutoPort
	BaudRate    int
	ReadTimeout time.Duration
}

// Serial reads newline-terminated telemetry from a serial port. A read
// that times out before a full line arrives yields an empty line; partial
// bytes are carried over to the next call.
type Serial struct {
	port    serial.Port
	path    string
	pending []byte
	chunk   []byte
}

// OpenSerial opens the configured port, auto-detecting a device when the
// port is empty or AutoPort.
func OpenSerial(cfg SerialConfig, logger *zap.Logger) (*Serial, error) {
	path := cfg.Port
	if path == "" || path == AutoPort {
		candidates, err := DetectPorts()
		if err != nil {
			return nil, fmt.Errorf("detect serial ports: %w", err)
		}
		if len(candidates) == 0 {
			return nil, ErrNoPortsFound
		}
		path = candidates[0]
		logger.Info("Auto-detected serial port",
			zap.Strings("candidates", candidates),
			zap.String("selected", path),
		)
	}

	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}

	logger.Info("Serial connection established",
		zap.String("port", path),
		zap.Int("baud_rate", baud),
		zap.Duration("read_timeout", timeout),
	)

	return &Serial{
		port:  port,
		path:  path,
		chunk: make([]byte, 256),
	}, nil
}

// DetectPorts returns the USB-serial style devices present on the system,
// sorted. The prefixes cover the Linux, Raspberry Pi, macOS and Windows
// device naming schemes.
func DetectPorts() ([]string, error) {
	all, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}

	prefixes := []string{
		"/dev/ttyUSB",
		"/dev/ttyACM",
		"/dev/cu.usbserial",
		"/dev/cu.usbmodem",
		"COM",
	}

	var candidates []string
	for _, p := range all {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				candidates = append(candidates, p)
				break
			}
		}
	}
	sort.Strings(candidates)
	return candidates, nil
}

// Path returns the device path this source is connected to.
func (s *Serial) Path() string { return s.path }

func (s *Serial) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = s.pending[i+1:]
			return line, nil
		}

		n, err := s.port.Read(s.chunk)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// Read timeout with no complete line; keep any partial bytes
			// for the next cycle.
			return "", nil
		}
		s.pending = append(s.pending, s.chunk[:n]...)
	}
}

func (s *Serial) Close() error { return s.port.Close() }
