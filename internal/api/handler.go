package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"clinic-call-backend/internal/mw"
	"clinic-call-backend/internal/notification"
	"clinic-call-backend/internal/state"
	"clinic-call-backend/internal/store"
)

// User-facing error messages, shown as-is by the staff panel.
const (
	msgCallFieldsRequired = "Nome do paciente, profissional e consultório são obrigatórios."
	msgProcessingError    = "Erro ao processar requisição."
	msgStateUnavailable   = "Não foi possível acessar a chamada atual."
	msgPatientNameMissing = "Digite o nome do paciente para adicionar à fila."
	msgProfessionalNeeded = "Preencha o título e o nome do profissional."
	msgRoomNeeded         = "Selecione o consultório."
	msgPatientNotFound    = "Paciente não encontrado."
	msgInvalidPatientID   = "ID de paciente inválido."
	msgQueueUnavailable   = "Erro ao acessar a fila de pacientes."
	msgSubscriptionError  = "Erro ao salvar a inscrição de notificações."
	msgEndpointRequired   = "O endpoint da inscrição é obrigatório."
	msgNotSubscribed      = "Inscrição não encontrada."
	msgPushDisabled       = "Notificações push desativadas."
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	holder    state.Holder
	store     store.Store
	publisher notification.Publisher
	webpush   *webpush.Options
	cache     *mw.ResponseCache
	now       func() time.Time
}

// NewHandler creates a new API handler. publisher and webpushOptions may be nil.
func NewHandler(h state.Holder, s store.Store, publisher notification.Publisher, webpushOptions *webpush.Options) *Handler {
	if publisher == nil {
		publisher = notification.Fanout{}
	}
	return &Handler{
		holder:    h,
		store:     s,
		publisher: publisher,
		webpush:   webpushOptions,
		now:       time.Now,
	}
}

// invalidate drops cached GET responses after a write.
func (h *Handler) invalidate(uris ...string) {
	if h.cache != nil {
		h.cache.Invalidate(uris...)
	}
}
