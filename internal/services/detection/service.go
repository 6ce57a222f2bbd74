package detection

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
)

// Service runs object detection on demand using a YOLO network loaded
// through the OpenCV DNN module. It is only invoked for frames the motion
// gate has passed, so the expensive forward pass never runs on quiet video.
type Service struct {
	mu          sync.Mutex
	net         gocv.Net
	outputNames []string
	classNames  []string
	inputSize   int
	confidence  float32
	nmsThresh   float32
	classes     map[int]bool
	isHealthy   bool
}

func NewService(cfg *config.Config) (*Service, error) {
	log.Info().
		Str("model", cfg.DetectorModelPath).
		Str("config", cfg.DetectorConfigPath).
		Msg("Initializing object detection service")

	service := &Service{
		inputSize:  cfg.DetectorInputSize,
		confidence: float32(cfg.DetectorConfidence),
		nmsThresh:  float32(cfg.DetectorNMS),
		classes:    make(map[int]bool),
	}
	for _, id := range cfg.DetectorClasses {
		service.classes[id] = true
	}

	net := gocv.ReadNet(cfg.DetectorModelPath, cfg.DetectorConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detection model from %s", cfg.DetectorModelPath)
	}
	service.net = net
	service.outputNames = outputLayerNames(&net)
	service.isHealthy = true

	names, err := loadClassNames(cfg.DetectorNamesPath)
	if err != nil {
		log.Warn().Err(err).Msg("Class names file not available, using numeric class labels")
	}
	service.classNames = names

	log.Info().
		Int("input_size", service.inputSize).
		Int("classes_of_interest", len(service.classes)).
		Msg("Object detection service ready")

	return service, nil
}

// Detect runs the network on the frame and returns filtered detections.
func (s *Service) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Color == nil {
		return nil, fmt.Errorf("no frame available for detection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isHealthy {
		return nil, fmt.Errorf("detection service unavailable")
	}

	mat, err := gocv.ImageToMatRGB(frame.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame for detection: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	outputs := s.net.ForwardLayers(s.outputNames)
	defer func() {
		for _, out := range outputs {
			out.Close()
		}
	}()

	return s.decodeOutputs(outputs, frame.Width(), frame.Height()), nil
}

// decodeOutputs converts raw YOLO output rows into detections, applying
// the confidence floor, the class-of-interest filter and non-maximum
// suppression.
func (s *Service) decodeOutputs(outputs []gocv.Mat, frameW, frameH int) []models.Detection {
	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for _, out := range outputs {
		rows := out.Rows()
		cols := out.Cols()
		for row := 0; row < rows; row++ {
			classID, score := bestClass(out, row, cols)
			if score <= s.confidence {
				continue
			}
			if len(s.classes) > 0 && !s.classes[classID] {
				continue
			}

			cx := out.GetFloatAt(row, 0) * float32(frameW)
			cy := out.GetFloatAt(row, 1) * float32(frameH)
			w := out.GetFloatAt(row, 2) * float32(frameW)
			h := out.GetFloatAt(row, 3) * float32(frameH)

			x1 := int(cx - w/2)
			y1 := int(cy - h/2)
			boxes = append(boxes, image.Rect(x1, y1, x1+int(w), y1+int(h)))
			scores = append(scores, score)
			classIDs = append(classIDs, classID)
		}
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, scores, s.confidence, s.nmsThresh)

	detections := make([]models.Detection, 0, len(indices))
	for _, idx := range indices {
		box := clampBox(boxes[idx], frameW, frameH)
		detections = append(detections, models.Detection{
			ClassID:    classIDs[idx],
			ClassName:  s.className(classIDs[idx]),
			Confidence: scores[idx],
			BBox: models.BBox{
				X1: box.Min.X,
				Y1: box.Min.Y,
				X2: box.Max.X,
				Y2: box.Max.Y,
			},
		})
	}

	return detections
}

// SetConfidence updates the confidence floor at runtime.
func (s *Service) SetConfidence(confidence float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confidence = confidence
}

// SetClasses replaces the set of class IDs the detector reports.
// An empty list means all classes pass.
func (s *Service) SetClasses(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = make(map[int]bool, len(ids))
	for _, id := range ids {
		s.classes[id] = true
	}
}

func (s *Service) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHealthy
}

func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isHealthy {
		s.net.Close()
		s.isHealthy = false
	}
	log.Info().Msg("Object detection service shutdown")
}

func (s *Service) className(id int) string {
	if id >= 0 && id < len(s.classNames) {
		return s.classNames[id]
	}
	return strconv.Itoa(id)
}

// bestClass scans the class score columns of a YOLO output row. The first
// five columns are box geometry and objectness.
func bestClass(out gocv.Mat, row, cols int) (int, float32) {
	bestID := -1
	var bestScore float32
	for col := 5; col < cols; col++ {
		score := out.GetFloatAt(row, col)
		if score > bestScore {
			bestScore = score
			bestID = col - 5
		}
	}
	return bestID, bestScore
}

func clampBox(box image.Rectangle, frameW, frameH int) image.Rectangle {
	return box.Intersect(image.Rect(0, 0, frameW, frameH))
}

func outputLayerNames(net *gocv.Net) []string {
	var names []string
	for _, idx := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(idx)
		name := layer.GetName()
		if name != "" && name != "_input" {
			names = append(names, name)
		}
		layer.Close()
	}
	return names
}

func loadClassNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			names = append(names, line)
		}
	}
	return names, scanner.Err()
}
