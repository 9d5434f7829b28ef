package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/services"
)

// PageSize is the number of documents listed per page.
const PageSize = 5

// Callback data.
const (
	cbPrivacyAccept  = "privacy:accept"
	cbPrivacyDecline = "privacy:decline"
	cbBack           = "back"
	cbMenuDocs       = "menu:docs"
	cbMenuLocation   = "menu:location"
	cbMenuProfile    = "menu:profile"
	cbMenuSupport    = "menu:support"

	cbDocPrefix      = "doc:"
	cbOrderPrefix    = "order:"
	cbDownloadPrefix = "download:"
	cbPagePrefix     = "page:"
)

// Commands.
const (
	cmdStart    = "start"
	cmdMenu     = "menu"
	cmdDocs     = "docs"
	cmdLocation = "location"
	cmdProfile  = "profile"
	cmdSupport  = "support"
)

const (
	msgAskCode         = "Здравствуйте! Введите код приглашения, который вы получили по электронной почте."
	msgAuthFirst       = "Сначала пройдите авторизацию: отправьте /start и введите код приглашения."
	msgUseMenu         = "Пожалуйста, воспользуйтесь меню."
	msgCodeNotFound    = "Код приглашения не найден. Проверьте код и попробуйте снова."
	msgCodeBound       = "Этот код уже используется в другом чате. Обратитесь в отдел кадров."
	msgPrivacy         = "Для продолжения необходимо согласие на обработку персональных данных."
	msgPrivacyAccepted = "Спасибо! Согласие получено."
	msgPrivacyDeclined = "Без согласия на обработку персональных данных оформление невозможно. Чтобы начать заново, отправьте /start."
	msgMenu            = "Главное меню"
	msgNoDocuments     = "Список документов пуст."
	msgDocuments       = "Ваши документы (%d-%d из %d):"
	msgAskFile         = "Документ «%s».\n%s\n\nОтправьте файл документа."
	msgAlreadySent     = "Документ «%s»: %s."
	msgSendFile        = "Пожалуйста, отправьте файл документа или вернитесь в меню."
	msgUploaded        = "Документ «%s» загружен и отправлен на проверку."
	msgOrdered         = "Документ «%s» отмечен как заказанный."
	msgAskLocation     = "Нажмите кнопку ниже, чтобы отправить геолокацию."
	msgLocationSaved   = "Геолокация сохранена."
	msgAskSupport      = "Опишите ваш вопрос одним сообщением."
	msgSupportSent     = "Ваше обращение отправлено. Специалист ответит вам в этом чате."
	msgProfile         = "%s\nСтатус: %s\nДокументов: %d, отправлено: %d, проверено: %d"
	msgNotFound        = "Запись не найдена. Откройте меню и попробуйте снова."
	msgIllegal         = "Действие недоступно для текущего статуса. Обновите список и попробуйте снова."
	msgTerminal        = "Оформление уже завершено."
	msgMalformed       = "Не удалось прочитать файл. Загрузите таблицу в формате xlsx или csv."
	msgMissingColumns  = "В файле отсутствуют следующие столбцы: %s"
	msgTryAgain        = "Произошла ошибка, попробуйте позже."

	btnAccept   = "✅ Согласен"
	btnDecline  = "❌ Не согласен"
	btnDocs     = "📄 Документы"
	btnLocation = "📍 Геолокация"
	btnProfile  = "👤 Профиль"
	btnSupport  = "✉️ Поддержка"
	btnBack     = "« Меню"
	btnPrev     = "◀"
	btnNext     = "▶"
	btnOrder    = "📝 Отметить как заказанный"
	btnDownload = "⬇️ Скачать"
	btnShareLoc = "📍 Отправить геолокацию"
)

var documentStatusLabels = map[models.DocumentStatus]string{
	models.DocumentNotSubmitted:          "не загружен",
	models.DocumentOrdered:               "заказан",
	models.DocumentPendingReview:         "на проверке",
	models.DocumentVerified:              "проверен",
	models.DocumentResubmissionRequested: "требуется повторная загрузка",
}

var candidateStatusLabels = map[models.CandidateStatus]string{
	models.CandidateInvited:     "приглашён",
	models.CandidateRegistered:  "зарегистрирован",
	models.CandidateUnderReview: "на рассмотрении",
	models.CandidateAccepted:    "принят",
	models.CandidateRejected:    "отклонён",
}

func menuKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: btnDocs, Data: cbMenuDocs}, {Text: btnProfile, Data: cbMenuProfile}},
		{{Text: btnLocation, Data: cbMenuLocation}, {Text: btnSupport, Data: cbMenuSupport}},
	}}
}

func privacyKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: btnAccept, Data: cbPrivacyAccept}, {Text: btnDecline, Data: cbPrivacyDecline}},
	}}
}

func backKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{{{Text: btnBack, Data: cbBack}}}}
}

// clampOffset keeps offset on a page boundary inside the list.
func clampOffset(offset, total int) int {
	if offset >= total {
		offset = (total - 1) / PageSize * PageSize
	}
	if offset < 0 {
		offset = 0
	}
	return offset - offset%PageSize
}

// documentPage renders one page of the document list.
func documentPage(docs []*models.CandidateDocument, offset int) (string, *Keyboard) {
	if len(docs) == 0 {
		return msgNoDocuments, backKeyboard()
	}
	offset = clampOffset(offset, len(docs))
	end := min(offset+PageSize, len(docs))

	kb := &Keyboard{}
	for _, d := range docs[offset:end] {
		kb.Rows = append(kb.Rows, []Button{{
			Text: fmt.Sprintf("%s: %s", d.TemplateName, documentStatusLabels[d.Status]),
			Data: cbDocPrefix + d.ID,
		}})
	}

	var nav []Button
	if offset > 0 {
		nav = append(nav, Button{Text: btnPrev, Data: cbPagePrefix + strconv.Itoa(offset-PageSize)})
	}
	if end < len(docs) {
		nav = append(nav, Button{Text: btnNext, Data: cbPagePrefix + strconv.Itoa(end)})
	}
	if len(nav) > 0 {
		kb.Rows = append(kb.Rows, nav)
	}
	kb.Rows = append(kb.Rows, []Button{{Text: btnBack, Data: cbBack}})

	return fmt.Sprintf(msgDocuments, offset+1, end, len(docs)), kb
}

// uploadPrompt asks for a file and offers marking the document as ordered
// while nothing was submitted yet.
func uploadPrompt(d *models.CandidateDocument) (string, *Keyboard) {
	kb := &Keyboard{}
	if d.Status == models.DocumentNotSubmitted {
		kb.Rows = append(kb.Rows, []Button{{Text: btnOrder, Data: cbOrderPrefix + d.ID}})
	}
	kb.Rows = append(kb.Rows, []Button{{Text: btnBack, Data: cbBack}})
	return fmt.Sprintf(msgAskFile, d.TemplateName, d.Instructions), kb
}

func downloadOffer(d *models.CandidateDocument) (string, *Keyboard) {
	kb := &Keyboard{Rows: [][]Button{
		{{Text: btnDownload, Data: cbDownloadPrefix + d.ID}},
		{{Text: btnBack, Data: cbBack}},
	}}
	return fmt.Sprintf(msgAlreadySent, d.TemplateName, documentStatusLabels[d.Status]), kb
}

func profileText(p *services.Profile) string {
	return fmt.Sprintf(msgProfile, p.Candidate.FullName(), candidateStatusLabels[p.Candidate.Status],
		p.Total, p.Submitted, p.Verified)
}

func missingColumnsText(cols []string) string {
	return fmt.Sprintf(msgMissingColumns, strings.Join(cols, ", "))
}
