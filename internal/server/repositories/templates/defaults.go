package templates

import "github.com/dmitrijs2005/hronboard/internal/server/models"

// Defaults is the reference set seeded when the template table is empty.
var Defaults = []models.DocumentTemplate{
	{
		Code: models.TemplatePassport, Name: "Паспорт", Description: "Скан паспорта",
		Instructions: "Загрузите скан паспорта", IsRequired: true, ProcessingDays: 1, OrderPosition: 1,
	},
	{
		Code: models.TemplateINN, Name: "ИНН", Description: "Скан ИНН",
		Instructions: "Загрузите скан ИНН", IsRequired: true, ProcessingDays: 1, OrderPosition: 2,
	},
	{
		Code: models.TemplateSNILS, Name: "СНИЛС", Description: "Скан СНИЛС",
		Instructions: "Загрузите скан СНИЛС", IsRequired: true, ProcessingDays: 1, OrderPosition: 3,
	},
	{
		Code: models.TemplateBankStatement, Name: "Выписка банка", Description: "Выписка с банковского счета в Excel",
		Instructions: "Загрузите выписку с банковского счета (xlsx или csv) со столбцами: Наименование банка, " +
			"Номер счета (вклада), Дата открытия, Дата закрытия, Вид счета, Состояние счета",
		IsRequired: true, ProcessingDays: 1, OrderPosition: 4,
	},
}
