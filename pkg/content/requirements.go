package content

// Policy decides how an option is presented when a requirement is not met.
type Policy string

const (
	PolicyHide    Policy = "hide"
	PolicyDisable Policy = "disable"
)

// Requirement gates an option on a player's accumulated attribute value.
type Requirement struct {
	Attribute string `json:"attribute"`
	Min       int    `json:"min"`
	Policy    Policy `json:"policy"`
}

// Access is the advisory presentation state of an option for one player.
// The room engine never enforces it.
type Access string

const (
	AccessOpen     Access = "open"
	AccessPartial  Access = "partial"
	AccessDisabled Access = "disabled"
	AccessHidden   Access = "hidden"
)

// Accessibility evaluates the option's requirements against attrs.
//
// With several requirements of which only some are met, an option that
// authors a partial next scene is reported as AccessPartial. Otherwise any
// unmet requirement hides the option if its policy is hide, else disables it.
func (o *Option) Accessibility(attrs map[string]int) Access {
	if len(o.Requirements) == 0 {
		return AccessOpen
	}

	met := 0
	hide := false
	for _, req := range o.Requirements {
		if attrs[req.Attribute] >= req.Min {
			met++
			continue
		}
		if req.Policy == PolicyHide {
			hide = true
		}
	}

	switch {
	case met == len(o.Requirements):
		return AccessOpen
	case met > 0 && len(o.Requirements) > 1 && o.NextSceneID.Partial != "":
		return AccessPartial
	case hide:
		return AccessHidden
	default:
		return AccessDisabled
	}
}
