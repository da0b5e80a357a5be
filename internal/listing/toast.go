package listing

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

type Toast struct {
	ID      uint64
	Message string
	Kind    ToastKind
}

// Notify shows a toast that dismisses itself after ToastLifetime.
func (c *Controller) Notify(message string, kind ToastKind) {
	if message == "" {
		return
	}
	c.mu.Lock()
	c.toastID++
	id := c.toastID
	c.toasts = append(c.toasts, Toast{ID: id, Message: message, Kind: kind})
	c.mu.Unlock()
	c.clock.AfterFunc(ToastLifetime, func() { c.Dismiss(id) })
	c.changed()
}

func (c *Controller) Dismiss(id uint64) {
	c.mu.Lock()
	kept := c.toasts[:0]
	removed := false
	for _, t := range c.toasts {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	c.toasts = kept
	c.mu.Unlock()
	if removed {
		c.changed()
	}
}
