package utils

// -----------------------------------------------------------------------------
// SeriesBuffer is a fixed-size circular buffer of samples with running min/max.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type SeriesBuffer struct {
	data     []float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements

	min      float64
	max      float64
	minmaxOK bool // false forces a rescan on next read
}

// -----------------------------------------------------------------------------

// NewSeriesBuffer creates a new buffer with fixed capacity
func NewSeriesBuffer(capacity int) *SeriesBuffer {
	if capacity <= 0 {
		capacity = 100 // Default reasonable size
	}

	return &SeriesBuffer{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a sample, evicting the oldest once full. O(1) unless the
// evicted sample was the current extremum.
func (sb *SeriesBuffer) Append(v float64) {
	evicted := 0.0
	full := sb.size == sb.capacity
	if full {
		evicted = sb.data[sb.index]
	}

	sb.data[sb.index] = v
	sb.index = (sb.index + 1) % sb.capacity
	if !full {
		sb.size++
	}

	if sb.size == 1 {
		sb.min, sb.max = v, v
		sb.minmaxOK = true
		return
	}

	if full && sb.minmaxOK && (evicted == sb.min || evicted == sb.max) {
		sb.minmaxOK = false
		return
	}
	if sb.minmaxOK {
		if v < sb.min {
			sb.min = v
		}
		if v > sb.max {
			sb.max = v
		}
	}
}

// -----------------------------------------------------------------------------

func (sb *SeriesBuffer) rescan() {
	if sb.size == 0 {
		sb.min, sb.max = 0, 0
		sb.minmaxOK = true
		return
	}

	start := sb.start()
	sb.min = sb.data[start]
	sb.max = sb.data[start]
	for i := 1; i < sb.size; i++ {
		v := sb.data[(start+i)%sb.capacity]
		if v < sb.min {
			sb.min = v
		}
		if v > sb.max {
			sb.max = v
		}
	}
	sb.minmaxOK = true
}

// -----------------------------------------------------------------------------

// Min returns the smallest retained sample (0 when empty).
func (sb *SeriesBuffer) Min() float64 {
	if !sb.minmaxOK {
		sb.rescan()
	}
	return sb.min
}

// -----------------------------------------------------------------------------

// Max returns the largest retained sample (0 when empty).
func (sb *SeriesBuffer) Max() float64 {
	if !sb.minmaxOK {
		sb.rescan()
	}
	return sb.max
}

// -----------------------------------------------------------------------------

func (sb *SeriesBuffer) start() int {
	if sb.size == sb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		return sb.index
	}
	return 0
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (sb *SeriesBuffer) GetAll() []float64 {
	result := make([]float64, sb.size)
	start := sb.start()
	for i := 0; i < sb.size; i++ {
		result[i] = sb.data[(start+i)%sb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest samples, oldest first.
func (sb *SeriesBuffer) GetLatest(n int) []float64 {
	if sb.size == 0 || n <= 0 {
		return []float64{}
	}

	count := n
	if n > sb.size {
		count = sb.size
	}

	result := make([]float64, count)
	startIdx := (sb.index - count + sb.capacity) % sb.capacity
	for i := 0; i < count; i++ {
		result[i] = sb.data[(startIdx+i)%sb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (sb *SeriesBuffer) Size() int {
	return sb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (sb *SeriesBuffer) Capacity() int {
	return sb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (sb *SeriesBuffer) IsFull() bool {
	return sb.size == sb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (sb *SeriesBuffer) Clear() {
	sb.index = 0
	sb.size = 0
	sb.min, sb.max = 0, 0
	sb.minmaxOK = true
}
