// Package inference - ONNX Runtime session management.
package inference

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes an inference session over a single-input, single-output
// detection model.
type Config struct {
	// ModelPath is the .onnx file to load.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// InputName and OutputName are the model's tensor names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputShape and OutputShape are the fixed tensor shapes, e.g.
	// [1, 3, 640, 640] and [1, 25200, 85].
	InputShape  []int64 `json:"input_shape" yaml:"input_shape"`
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`
	// IntraOpThreads and InterOpThreads restrict per-session threading so a
	// session pool spreads evenly over cores. Zero keeps the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// Initialize points the runtime at its shared library and initializes the
// environment. Must be called once before any session is created.
func Initialize(sharedLibraryPath string) error {
	if sharedLibraryPath == "" {
		sharedLibraryPath = defaultSharedLibraryPath()
	}
	ort.SetSharedLibraryPath(sharedLibraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "failed to initialize onnxruntime environment")
	}
	return nil
}

// Destroy tears down the runtime environment.
func Destroy() error {
	return ort.DestroyEnvironment()
}

// defaultSharedLibraryPath picks the bundled runtime library for the host.
func defaultSharedLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}
		return "./third_party/onnxruntime_amd64.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// Session wraps an ONNX Runtime session with pre-allocated input and output
// tensors. A Session is not safe for concurrent use; use a Pool to share
// sessions across goroutines.
type Session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewSession loads the model and allocates its IO tensors.
//
// Arguments:
//   - cfg: Model path, tensor names and fixed shapes.
//
// Returns:
//   - *Session: A ready session.
//   - error: If tensor allocation or session creation fails.
func NewSession(cfg Config) (*Session, error) {
	inputShape := ort.NewShape(cfg.InputShape...)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputShape := ort.NewShape(cfg.OutputShape...)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		options.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	if cfg.InterOpThreads > 0 {
		options.SetInterOpNumThreads(cfg.InterOpThreads)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrapf(err, "failed to create session for %s", cfg.ModelPath)
	}

	return &Session{session: session, input: inputTensor, output: outputTensor}, nil
}

// Predict copies the input into the session tensor, runs the model and
// returns a copy of the flat output plus its shape.
//
// Arguments:
//   - input: Flat tensor data matching the configured input shape.
//
// Returns:
//   - []float32: The raw output values.
//   - []int: The output tensor shape.
//   - error: If the input size mismatches or inference fails.
func (s *Session) Predict(input []float32) ([]float32, []int, error) {
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, nil, errors.Errorf("input holds %d floats, session tensor needs %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, nil, errors.Wrap(err, "inference run failed")
	}

	raw := s.output.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)

	shape64 := s.output.GetShape()
	shape := make([]int, len(shape64))
	for i, d := range shape64 {
		shape[i] = int(d)
	}
	return out, shape, nil
}

// Close releases the session and its tensors.
func (s *Session) Close() {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

// Pool is a fixed-size pool of sessions for concurrent serving.
type Pool struct {
	sessions chan *Session
}

// NewPool pre-instantiates size sessions from the same config.
func NewPool(cfg Config, size int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	pool := &Pool{sessions: make(chan *Session, size)}
	for i := 0; i < size; i++ {
		session, err := NewSession(cfg)
		if err != nil {
			pool.Close()
			return nil, errors.Wrapf(err, "failed to create pooled session %d", i)
		}
		pool.sessions <- session
	}
	return pool, nil
}

// Get blocks until a session is available.
func (p *Pool) Get() *Session {
	return <-p.sessions
}

// Put returns a session to the pool.
func (p *Pool) Put(s *Session) {
	p.sessions <- s
}

// Predict borrows a session for one inference call.
func (p *Pool) Predict(input []float32) ([]float32, []int, error) {
	s := p.Get()
	defer p.Put(s)
	return s.Predict(input)
}

// Close drains the pool and closes every session.
func (p *Pool) Close() {
	for {
		select {
		case s := <-p.sessions:
			s.Close()
		default:
			return
		}
	}
}
