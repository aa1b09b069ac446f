package odoo

// Model is an Odoo model name.
type Model string

const (
	ModelProductProduct  Model = "product.product"  // variants
	ModelProductTemplate Model = "product.template" // templates
	ModelSaleOrder       Model = "sale.order"
	ModelSaleOrderLine   Model = "sale.order.line"
)

// CloseWindowAction is the client action Odoo understands as "close the dialog".
const CloseWindowAction = "ir.actions.act_window_close"

// Action is a client action descriptor returned to a UI.
type Action struct {
	Type string `json:"type"`
}

// CloseWindow returns the action that closes the current dialog.
func CloseWindow() Action {
	return Action{Type: CloseWindowAction}
}

// DomainCondition is either a [field, operator, value] triple or a single
// logical operator such as "|" or "&".
//
//	{"product_id", "in", ids}
//	{"|"}
type DomainCondition []interface{}

// Domain is an Odoo search filter.
type Domain []DomainCondition

// ToRPC converts d to the list Odoo expects. Single-element conditions holding
// a string are emitted as bare operators.
func (d Domain) ToRPC() []interface{} {
	rpcDomain := []interface{}{}
	for _, cond := range d {
		if len(cond) == 1 {
			if op, ok := cond[0].(string); ok {
				rpcDomain = append(rpcDomain, op)
				continue
			}
		}
		rpcDomain = append(rpcDomain, []interface{}(cond))
	}
	return rpcDomain
}

// Fields lists the field names to read.
type Fields []string

// ToRPC returns the field list as sent over XML-RPC.
func (f Fields) ToRPC() []string {
	return []string(f)
}

// Context is the 'context' dictionary passed with a call.
type Context map[string]interface{}

// Options are the common keyword arguments of search and read methods.
type Options struct {
	Context Context
	Limit   int
	Offset  int
	Order   string
	Extra   map[string]interface{}
}

// ToRPC converts o to execute_kw keyword arguments. Zero values are omitted.
func (o *Options) ToRPC() map[string]interface{} {
	if o == nil {
		return map[string]interface{}{}
	}

	rpcOptions := make(map[string]interface{})
	if len(o.Context) > 0 {
		rpcOptions["context"] = map[string]interface{}(o.Context)
	}
	if o.Limit > 0 {
		rpcOptions["limit"] = o.Limit
	}
	if o.Offset > 0 {
		rpcOptions["offset"] = o.Offset
	}
	if o.Order != "" {
		rpcOptions["order"] = o.Order
	}
	for k, v := range o.Extra {
		rpcOptions[k] = v
	}
	return rpcOptions
}

// Data holds field values for a record to create or write.
type Data map[string]interface{}

// ToRPC returns the values as sent over XML-RPC.
func (d Data) ToRPC() map[string]interface{} {
	return map[string]interface{}(d)
}

// Record is one row as returned by read or search_read.
type Record map[string]interface{}

// Int returns an integer field. Odoo sends False for empty values, which reads as 0.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns a float or monetary field.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// String returns a char field, or "" when Odoo sent False.
func (r Record) String(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Many2one returns the id of a many2one field sent as [id, display_name].
func (r Record) Many2one(field string) int64 {
	pair, ok := r[field].([]interface{})
	if !ok || len(pair) == 0 {
		return 0
	}
	return Record{"id": pair[0]}.Int("id")
}

// IDs returns the ids of a one2many or many2many field.
func (r Record) IDs(field string) []int64 {
	raw, ok := r[field].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		if id := (Record{"id": v}).Int("id"); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func firstOptions(options []*Options) *Options {
	if len(options) == 0 {
		return nil
	}
	return options[0]
}
