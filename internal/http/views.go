package http

import (
	"finform/internal/core"
)

// Messages shown next to an input whose value was refused.
const (
	msgInvalidDate   = "Veuillez saisir une date valide."
	msgInvalidNumber = "Veuillez saisir un nombre valide."
	msgUnknownField  = "Champ inconnu."
	msgInProgress    = "Un ajout est déjà en cours."
	msgEntriesFailed = "Impossible de charger les transactions."
	msgRateLimited   = "Trop de requêtes. Veuillez réessayer plus tard."
)

// pendingPrefix prefixes the form name of a field's new-value input.
const pendingPrefix = "new_"

type (
	inputView struct {
		Key         string
		Type        string
		Label       string
		Placeholder string
		Step        string
		Required    bool
		Value       string
		Error       string
	}

	fieldView struct {
		Key      string
		Label    string
		Options  core.OptionList
		Selected string
		IsNew    bool
		Orphan   bool // selected value missing from the current options
		Pending  string
		Error    string
	}

	formView struct {
		Date     inputView
		Amount   inputView
		Details  inputView
		FuelCost inputView
		Fields   []fieldView
	}

	pageView struct {
		Form formView
	}

	noticeView struct {
		Kind    NotificationType
		Message string
	}

	submitView struct {
		Notice noticeView
		Form   *formView // set when the fields are swapped out of band
	}

	entryView struct {
		ID          string
		Date        string
		Category    string
		Type        string
		Amount      string
		Account     string
		Beneficiary string
		Details     string
	}

	entriesView struct {
		Rows  []entryView
		Error string
	}
)

// buildForm renders the state of sess. errs maps input keys to messages.
func buildForm(sess *session, errs map[string]string) formView {
	draft := sess.composer.Draft()
	pending := sess.composer.Pending()
	opts := sess.Options()

	v := formView{
		Date:     inputView{Key: core.KeyDate, Type: "date", Label: "Date", Required: true, Value: draft.Date},
		Amount:   inputView{Key: core.KeyAmount, Type: "number", Label: "Montant", Placeholder: "Montant (€)", Step: "any", Required: true, Value: draft.Amount},
		Details:  inputView{Key: core.KeyDetails, Type: "text", Label: "Détails", Placeholder: "Détails", Value: draft.Details},
		FuelCost: inputView{Key: core.KeyFuelCost, Type: "number", Label: "Carburant", Placeholder: "Carburant €/L", Step: "0.01", Value: draft.FuelCost},
	}
	for _, in := range []*inputView{&v.Date, &v.Amount, &v.Details, &v.FuelCost} {
		in.Error = errs[in.Key]
	}
	for _, f := range core.Fields() {
		v.Fields = append(v.Fields, buildField(f, draft, pending, opts, errs[string(f.Key)]))
	}
	return v
}

func buildField(f core.Field, draft core.DraftRecord, pending core.PendingNewValues, opts core.Options, errMsg string) fieldView {
	selected := draft.Slot(f.Key)
	list := opts.For(f.Key)
	return fieldView{
		Key:      string(f.Key),
		Label:    f.Label,
		Options:  list,
		Selected: selected,
		IsNew:    draft.IsNew(f.Key),
		Orphan:   selected != "" && selected != core.NewValue && !list.Contains(selected),
		Pending:  pending[f.Key],
		Error:    errMsg,
	}
}

func buildEntries(rows []core.EntryRow) []entryView {
	out := make([]entryView, 0, len(rows))
	for _, r := range rows {
		out = append(out, entryView{
			ID:          r.Get("ID"),
			Date:        r.Get(core.KeyDate),
			Category:    r.Category(),
			Type:        r.Get(string(core.FieldType)),
			Amount:      r.Get(core.KeyAmount),
			Account:     r.Get(string(core.FieldAccount)),
			Beneficiary: r.Get(string(core.FieldBeneficiary)),
			Details:     r.Get(core.KeyDetails),
		})
	}
	return out
}
