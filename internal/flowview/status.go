package flowview

type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusInfo
	StatusSuccess
	StatusDanger
)

func (k StatusKind) String() string {
	switch k {
	case StatusInfo:
		return "info"
	case StatusSuccess:
		return "success"
	case StatusDanger:
		return "danger"
	}
	return "none"
}

// Banner texts.
const (
	MsgLoading      = "Cargando flujos…"
	MsgLoadFailed   = "Error cargando datos."
	MsgToggled      = "Estado actualizado."
	MsgToggleFailed = "Error al cambiar estado."
	MsgRunning      = "Ejecutando…"
	MsgRunTriggered = "Disparado correctamente."
	MsgRunFailed    = "No se pudo ejecutar (define webhook en .env)."

	MsgNoFlows    = "No hay flujos configurados."
	MsgRowsFailed = "No se pudieron cargar las fuentes."
)

// Status is the single banner shared by every action. Generation grows with
// each update so a pending clear can tell whether it is still current.
type Status struct {
	Kind    StatusKind
	Message string
	// Sticky banners belong to the list itself and are never auto-cleared.
	Sticky     bool
	Generation uint64
}

func (s Status) Empty() bool { return s.Kind == StatusNone || s.Message == "" }

// Spinner reports whether the banner describes work in progress.
func (s Status) Spinner() bool { return s.Kind == StatusInfo }

func (v *View) setStatusLocked(kind StatusKind, msg string, sticky bool) uint64 {
	v.status.Generation++
	v.status.Kind = kind
	v.status.Message = msg
	v.status.Sticky = sticky
	if kind == StatusNone {
		v.status.Message = ""
	}
	return v.status.Generation
}

// scheduleClear clears the banner after the clear delay unless a newer
// message replaced it in the meantime.
func (v *View) scheduleClear(gen uint64) {
	if gen == 0 {
		return
	}
	delay := v.clearDelay
	if delay <= 0 {
		delay = ClearDelay
	}
	v.afterFunc(delay, func() {
		if v.clearIf(gen) {
			v.notify()
		}
	})
}

func (v *View) clearIf(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status.Generation != gen || v.status.Kind == StatusNone || v.status.Sticky {
		return false
	}
	v.setStatusLocked(StatusNone, "", false)
	return true
}
