package parking

// WaitingQueues holds one FIFO of EV slot numbers per charger.
type WaitingQueues struct {
	queues map[string][]int
}

func NewWaitingQueues(chargerIDs []string) *WaitingQueues {
	queues := make(map[string][]int, len(chargerIDs))
	for _, id := range chargerIDs {
		queues[id] = nil
	}
	return &WaitingQueues{queues: queues}
}

// Enqueue appends slotNumber unless it is already waiting for the charger.
func (w *WaitingQueues) Enqueue(chargerID string, slotNumber int) bool {
	if w.Contains(chargerID, slotNumber) {
		return false
	}
	w.queues[chargerID] = append(w.queues[chargerID], slotNumber)
	return true
}

func (w *WaitingQueues) Contains(chargerID string, slotNumber int) bool {
	for _, s := range w.queues[chargerID] {
		if s == slotNumber {
			return true
		}
	}
	return false
}

func (w *WaitingQueues) Pop(chargerID string) (int, bool) {
	queue := w.queues[chargerID]
	if len(queue) == 0 {
		return 0, false
	}
	head := queue[0]
	w.queues[chargerID] = queue[1:]
	return head, true
}

func (w *WaitingQueues) Remove(chargerID string, slotNumber int) bool {
	queue := w.queues[chargerID]
	for i, s := range queue {
		if s == slotNumber {
			w.queues[chargerID] = append(queue[:i:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

func (w *WaitingQueues) Len(chargerID string) int {
	return len(w.queues[chargerID])
}

func (w *WaitingQueues) Snapshot(chargerID string) []int {
	queue := w.queues[chargerID]
	out := make([]int, len(queue))
	copy(out, queue)
	return out
}
