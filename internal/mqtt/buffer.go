package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue holds messages published while the broker is unreachable.
// Warning and system events go into a fixed-capacity ring, oldest dropped
// first. Readings are coalesced: only the newest is kept, since a reading is
// superseded every tick and would otherwise evict the warning transitions.
// Not safe for concurrent use; the caller must synchronize.
type offlineQueue struct {
	events   []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // events overwritten since creation
	overflow bool

	readings  *bufferedMsg
	coalesced int // readings replaced since the last drain
}

func newOfflineQueue(capacity int) *offlineQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &offlineQueue{
		events:   make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (q *offlineQueue) push(msg bufferedMsg) {
	if msg.topic == TopicReadings {
		if q.readings != nil {
			q.coalesced++
		}
		q.readings = &msg
		return
	}

	if q.count == q.capacity {
		if !q.overflow {
			log.Printf("mqtt: offline buffer full (%d events), dropping oldest", q.capacity)
			q.overflow = true
		}
		q.dropped++
		// head already points at the oldest entry
		q.events[q.head] = msg
		q.head = (q.head + 1) % q.capacity
		return
	}
	q.events[q.head] = msg
	q.head = (q.head + 1) % q.capacity
	q.count++
}

// drainAll returns buffered events oldest first, followed by the latest
// readings, and empties the queue.
func (q *offlineQueue) drainAll() []bufferedMsg {
	n := q.len()
	if n == 0 {
		return nil
	}

	result := make([]bufferedMsg, 0, n)
	start := (q.head - q.count + q.capacity) % q.capacity
	for i := 0; i < q.count; i++ {
		result = append(result, q.events[(start+i)%q.capacity])
	}
	if q.readings != nil {
		if q.coalesced > 0 {
			log.Printf("mqtt: skipped %d stale readings while offline", q.coalesced)
		}
		result = append(result, *q.readings)
	}

	q.count = 0
	q.head = 0
	q.overflow = false
	q.readings = nil
	q.coalesced = 0
	return result
}

func (q *offlineQueue) len() int {
	if q.readings != nil {
		return q.count + 1
	}
	return q.count
}
