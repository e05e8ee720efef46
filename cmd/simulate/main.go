package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/config"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ReadRatio    float64
	PatientLimit int
}

// offeredSlot is one bookable slot as seen through the API.
type offeredSlot struct {
	DoctorID   string
	HospitalID string
	Date       string
	Time       string
	Fee        float64
}

type DataPool struct {
	Patients []string
	Doctors  []string
	Slots    []offeredSlot
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking  OperationMetrics
	Slots    OperationMetrics
	History  OperationMetrics
	Earnings OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("service", "simulate").Logger()
	logger.Info().Msg("simulator starting")

	cfg := loadConfig(logger)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("read", cfg.ReadRatio).
		Msg("config")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := sim.loadDataPool(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	sim.pool = pool
	logger.Info().Int("patients", len(pool.Patients)).Int("slots", len(pool.Slots)).Msg("data pool loaded")

	sim.Run()
	sim.PrintReport()

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer verifyCancel()
	if err := sim.verifyNoDoubleBooking(verifyCtx); err != nil {
		logger.Fatal().Err(err).Msg("verification failed")
	}
	logger.Info().Msg("verification passed: no slot booked twice")
}

func loadConfig(logger zerolog.Logger) SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load base config")
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:"+baseCfg.HTTPPort),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 4000),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("SIM_API_BASE_URL is required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func getJSON[T any](ctx context.Context, client *http.Client, u string) (T, error) {
	var out T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", u, err)
	}
	return out, nil
}

// loadDataPool reads patients and every still-open slot through the API.
func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	base := s.config.APIBaseURL
	pool := &DataPool{}

	patients, err := getJSON[listResponse[appointment.Patient]](ctx, s.client, base+"/patients")
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for i, p := range patients.Items {
		if i >= s.config.PatientLimit {
			break
		}
		pool.Patients = append(pool.Patients, p.ID)
	}

	doctors, err := getJSON[listResponse[appointment.Doctor]](ctx, s.client, base+"/doctors")
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	for _, d := range doctors.Items {
		pool.Doctors = append(pool.Doctors, d.ID)

		slots, err := getJSON[listResponse[appointment.SlotView]](ctx, s.client,
			base+"/doctors/"+url.PathEscape(d.ID)+"/slots")
		if err != nil {
			return nil, fmt.Errorf("load slots of %s: %w", d.ID, err)
		}
		for _, sv := range slots.Items {
			if sv.Booked {
				continue
			}
			pool.Slots = append(pool.Slots, offeredSlot{
				DoctorID:   d.ID,
				HospitalID: sv.HospitalID,
				Date:       sv.Date,
				Time:       sv.Time,
				Fee:        sv.ConsultationFee,
			})
		}
	}

	if len(pool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seed first")
	}
	if len(pool.Slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded, run the seed first")
	}
	return pool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if rng.Float64() < s.config.BookingRatio {
				s.doBooking(ctx, rng)
				continue
			}
			switch rng.Intn(3) {
			case 0:
				s.doRead(ctx, &s.metrics.Slots, "/doctors/"+s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]+"/slots")
			case 1:
				s.doRead(ctx, &s.metrics.History, "/patients/"+s.pool.Patients[rng.Intn(len(s.pool.Patients))]+"/appointments")
			case 2:
				s.doRead(ctx, &s.metrics.Earnings, "/doctors/"+s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]+"/earnings")
			}
		}
	}
}

// doBooking aims at a small hot set of slots so concurrent workers collide.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	hot := len(s.pool.Slots)
	if hot > 50 {
		hot = 50
	}
	slot := s.pool.Slots[rng.Intn(hot)]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	body, _ := json.Marshal(map[string]any{
		"patientId":       patientID,
		"doctorId":        slot.DoctorID,
		"hospitalId":      slot.HospitalID,
		"date":            slot.Date,
		"time":            slot.Time,
		"consultationFee": slot.Fee,
	})

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusCreated
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doRead(ctx context.Context, om *OperationMetrics, path string) {
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	om.Record(latency, success, false)
}

// verifyNoDoubleBooking checks that no two booked appointments share a slot.
func (s *Simulator) verifyNoDoubleBooking(ctx context.Context) error {
	appts, err := getJSON[listResponse[appointment.Appointment]](ctx, s.client, s.config.APIBaseURL+"/appointments")
	if err != nil {
		return err
	}

	seen := make(map[string]string, len(appts.Items))
	for _, a := range appts.Items {
		if a.Status != appointment.StatusBooked {
			continue
		}
		key := strings.Join([]string{a.DoctorID, a.HospitalID, a.Date, a.Time}, "|")
		if other, ok := seen[key]; ok {
			return fmt.Errorf("slot %s booked by both %s and %s", key, other, a.ID)
		}
		seen[key] = a.ID
	}
	s.logger.Info().Int("appointments", len(appts.Items)).Msg("appointments verified")
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Doctor slots", &s.metrics.Slots)
	printOperationReport("Patient history", &s.metrics.History)
	printOperationReport("Doctor earnings", &s.metrics.Earnings)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
