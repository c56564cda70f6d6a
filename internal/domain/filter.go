package domain

// Reason es el código máquina-legible del resultado de una etapa de filtrado.
type Reason string

const (
	ReasonPassed       Reason = "passed"
	ReasonCategory     Reason = "category"
	ReasonPriceFloor   Reason = "price_floor"
	ReasonSalesHistory Reason = "sales_history"
	ReasonOutlier      Reason = "outlier"
	ReasonLiquidity    Reason = "liquidity"
	ReasonNoData       Reason = "no_data"
)

// FailureReasons enumera los códigos de rechazo en el orden de las etapas.
// El colector de estadísticas lo usa para el desglose failed_by_reason.
var FailureReasons = []Reason{
	ReasonCategory,
	ReasonPriceFloor,
	ReasonSalesHistory,
	ReasonOutlier,
	ReasonLiquidity,
}

// FilterResult es el resultado de evaluar una etapa sobre un listing.
// Efímero por listing y etapa; se agrega al filter trace de la Opportunity
// y a las estadísticas del scan.
type FilterResult struct {
	Stage  string
	Passed bool
	Reason Reason
	Detail string
}

// Pass construye un resultado aprobado para la etapa dada.
func Pass(stage, detail string) FilterResult {
	return FilterResult{Stage: stage, Passed: true, Reason: ReasonPassed, Detail: detail}
}

// Fail construye un resultado rechazado con su código de razón.
func Fail(stage string, reason Reason, detail string) FilterResult {
	return FilterResult{Stage: stage, Passed: false, Reason: reason, Detail: detail}
}
