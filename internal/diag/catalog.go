package diag

import (
	"fmt"
	"strings"

	"github.com/roach88/candle/internal/ir"
)

// Error codes (E1xx): authoring problems that fail the compile.
const (
	ErrInvalidDocumentElement     Code = "E100"
	ErrUnexpectedElement          Code = "E101"
	ErrUnexpectedAttribute        Code = "E102"
	ErrExpectedAttribute          Code = "E103"
	ErrExpectedAttributes         Code = "E104"
	ErrIllegalAttributeWithOther  Code = "E105"
	ErrIllegalIdentifier          Code = "E106"
	ErrIdentifierTooLong          Code = "E107"
	ErrIllegalGuidValue           Code = "E108"
	ErrIllegalYesNoValue          Code = "E109"
	ErrIllegalYesNoDefaultValue   Code = "E110"
	ErrIllegalIntegerValue        Code = "E111"
	ErrIntegerOutOfRange          Code = "E112"
	ErrIllegalShortFilename       Code = "E113"
	ErrIllegalLongFilename        Code = "E114"
	ErrInvalidDateTimeFormat      Code = "E115"
	ErrIllegalVersionValue        Code = "E116"
	ErrIllegalCodepage            Code = "E117"
	ErrIllegalAttributeValue      Code = "E118"
	ErrIllegalEmptyAttributeValue Code = "E119"
	ErrUppercaseRequired          Code = "E120"
	ErrAttributeRequiresOther     Code = "E121"
	ErrComponentMultipleKeyPaths  Code = "E122"
	ErrTooManySearchElements      Code = "E123"
	ErrInsufficientVersion        Code = "E124"
	ErrExpectedElement            Code = "E125"
	ErrTooManyElements            Code = "E126"
	ErrExpectedAttributeOrParent  Code = "E127"
	ErrSchemaValidationFailed     Code = "E128"
	ErrIllegalValueInScope        Code = "E129"
	ErrExpectedAttributeOrElement Code = "E130"
	ErrExtensionFailure           Code = "E131"
	ErrConditionExpected          Code = "E132"
)

// Warning codes (W1xx): suspicious but legal authoring.
const (
	WarnImplicitComponentKeyPath Code = "W101"
	WarnDeprecatedElement        Code = "W102"
	WarnAdvertiseStateMismatch   Code = "W103"
	WarnPropertyUseless          Code = "W104"
	WarnUnsupportedCodepage      Code = "W105"
)

// Verbose codes (V1xx): trace output.
const (
	VerboseGeneratedIdentifier Code = "V101"
	VerboseValidationSkipped   Code = "V102"
)

func newMessage(code Code, kind string, sev Severity, loc ir.SourceLine, format string, args ...any) Message {
	return Message{
		Code:       code,
		Kind:       kind,
		Severity:   sev,
		SourceLine: loc,
		Text:       fmt.Sprintf(format, args...),
	}
}

func errorf(code Code, kind string, loc ir.SourceLine, format string, args ...any) Message {
	return newMessage(code, kind, SeverityError, loc, format, args...)
}

func warningf(code Code, kind string, loc ir.SourceLine, format string, args ...any) Message {
	return newMessage(code, kind, SeverityWarning, loc, format, args...)
}

// ============================================================================
// Errors
// ============================================================================

// InvalidDocumentElement reports a root element other than the core Wix element.
func InvalidDocumentElement(loc ir.SourceLine, element, namespace string) Message {
	return errorf(ErrInvalidDocumentElement, "InvalidDocumentElement", loc,
		"The document element '%s' in namespace '%s' is invalid. Source documents must have a 'Wix' root element in the core namespace.",
		element, namespace)
}

// UnexpectedElement reports a child element the parent does not allow.
func UnexpectedElement(loc ir.SourceLine, parent, child string) Message {
	return errorf(ErrUnexpectedElement, "UnexpectedElement", loc,
		"The %s element contains an unexpected child element '%s'.", parent, child)
}

// UnexpectedAttribute reports an attribute the element does not allow.
func UnexpectedAttribute(loc ir.SourceLine, element, attribute string) Message {
	return errorf(ErrUnexpectedAttribute, "UnexpectedAttribute", loc,
		"The %s element contains an unexpected attribute '%s'.", element, attribute)
}

// ExpectedAttribute reports a missing required attribute.
func ExpectedAttribute(loc ir.SourceLine, element, attribute string) Message {
	return errorf(ErrExpectedAttribute, "ExpectedAttribute", loc,
		"The %s/@%s attribute was not found; it is required.", element, attribute)
}

// ExpectedAttributes reports that none of a set of alternative attributes is present.
func ExpectedAttributes(loc ir.SourceLine, element string, attributes ...string) Message {
	return errorf(ErrExpectedAttributes, "ExpectedAttributes", loc,
		"The %s element requires one of the attributes %s.", element, quoteList(attributes))
}

// IllegalAttributeWithOtherAttribute reports two mutually exclusive attributes.
func IllegalAttributeWithOtherAttribute(loc ir.SourceLine, element, attribute, other string) Message {
	return errorf(ErrIllegalAttributeWithOther, "IllegalAttributeWithOtherAttribute", loc,
		"The %s/@%s attribute cannot be specified when attribute %s is also present.", element, attribute, other)
}

// IllegalIdentifier reports a value outside the identifier grammar.
func IllegalIdentifier(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalIdentifier, "IllegalIdentifier", loc,
		"The %s/@%s attribute's value, '%s', is not a legal identifier. Identifiers may contain ASCII characters A-Z, a-z, digits, underscores (_), or periods (.). Every identifier must begin with either a letter or an underscore.",
		element, attribute, value)
}

// IdentifierTooLong reports an identifier longer than max characters.
func IdentifierTooLong(loc ir.SourceLine, element, attribute, value string, max int) Message {
	return errorf(ErrIdentifierTooLong, "IdentifierTooLong", loc,
		"The %s/@%s attribute's value, '%s', is %d characters long. Identifiers may be at most %d characters.",
		element, attribute, value, len(value), max)
}

// IllegalGuidValue reports a malformed GUID.
func IllegalGuidValue(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalGuidValue, "IllegalGuidValue", loc,
		"The %s/@%s attribute's value, '%s', is not a legal guid value.", element, attribute, value)
}

// IllegalYesNoValue reports a value other than yes or no.
func IllegalYesNoValue(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalYesNoValue, "IllegalYesNoValue", loc,
		"The %s/@%s attribute's value, '%s', is not a legal yes/no value. The only legal values are 'no' and 'yes'.",
		element, attribute, value)
}

// IllegalYesNoDefaultValue reports a value other than yes, no or default.
func IllegalYesNoDefaultValue(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalYesNoDefaultValue, "IllegalYesNoDefaultValue", loc,
		"The %s/@%s attribute's value, '%s', is not a legal yes/no/default value. The only legal values are 'default', 'no' or 'yes'.",
		element, attribute, value)
}

// IllegalIntegerValue reports a value that is not an integer.
func IllegalIntegerValue(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalIntegerValue, "IllegalIntegerValue", loc,
		"The %s/@%s attribute's value, '%s', is not a legal integer value.", element, attribute, value)
}

// IntegerOutOfRange reports an integer outside [minValue, maxValue].
func IntegerOutOfRange(loc ir.SourceLine, element, attribute string, value, minValue, maxValue int64) Message {
	return errorf(ErrIntegerOutOfRange, "IntegerOutOfRange", loc,
		"The %s/@%s attribute's value, '%d', is not in the range of legal values. Legal values for this attribute are from %d to %d.",
		element, attribute, value, minValue, maxValue)
}

// IllegalShortFilename reports a name that is not 8.3 compliant.
func IllegalShortFilename(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalShortFilename, "IllegalShortFilename", loc,
		"The %s/@%s attribute's value, '%s', is not a valid 8.3-compliant name.", element, attribute, value)
}

// IllegalLongFilename reports a long filename with illegal characters.
func IllegalLongFilename(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalLongFilename, "IllegalLongFilename", loc,
		"The %s/@%s attribute's value, '%s', is not a valid filename because it contains illegal characters. Legal filenames contain no more than 260 characters and must contain at least one non-period character. Any character except for the following may be used: \\ ? | > < : / * \".",
		element, attribute, value)
}

// InvalidDateTimeFormat reports a date not in YYYY-MM-DDTHH:mm:ss form.
func InvalidDateTimeFormat(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrInvalidDateTimeFormat, "InvalidDateTimeFormat", loc,
		"The %s/@%s attribute's value '%s' is not a valid date/time value. A date/time value should follow the format YYYY-MM-DDTHH:mm:ss.",
		element, attribute, value)
}

// IllegalVersionValue reports a malformed x.x.x.x version.
func IllegalVersionValue(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalVersionValue, "IllegalVersionValue", loc,
		"The %s/@%s attribute's value, '%s', is not a valid version. Legal version values should look like 'x.x.x.x' where x is an integer from 0 to 65534.",
		element, attribute, value)
}

// IllegalCodepage reports an unknown codepage number or name.
func IllegalCodepage(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrIllegalCodepage, "IllegalCodepage", loc,
		"The %s/@%s attribute's value, '%s', is not a valid codepage.", element, attribute, value)
}

// IllegalAttributeValue reports a value outside a closed set of legal tokens.
func IllegalAttributeValue(loc ir.SourceLine, element, attribute, value string, legal ...string) Message {
	return errorf(ErrIllegalAttributeValue, "IllegalAttributeValue", loc,
		"The %s/@%s attribute's value, '%s', is not one of the legal options: %s.",
		element, attribute, value, quoteList(legal))
}

// IllegalEmptyAttributeValue reports an empty attribute value.
func IllegalEmptyAttributeValue(loc ir.SourceLine, element, attribute string) Message {
	return errorf(ErrIllegalEmptyAttributeValue, "IllegalEmptyAttributeValue", loc,
		"The %s/@%s attribute's value cannot be an empty string. If a value is not required, simply remove the entire attribute.",
		element, attribute)
}

// UppercaseRequired reports a public property name containing lowercase letters.
func UppercaseRequired(loc ir.SourceLine, element, attribute, value string) Message {
	return errorf(ErrUppercaseRequired, "UppercaseRequired", loc,
		"The %s/@%s attribute's value, '%s', must be uppercase because it names a public property that is passed to the server-side installation.",
		element, attribute, value)
}

// AttributeRequiresOther reports an attribute used without the attribute it depends on.
func AttributeRequiresOther(loc ir.SourceLine, element, attribute, other string) Message {
	return errorf(ErrAttributeRequiresOther, "AttributeRequiresOther", loc,
		"The %s/@%s attribute can only be specified with the %s attribute.", element, attribute, other)
}

// ComponentMultipleKeyPaths reports a component with more than one key path.
func ComponentMultipleKeyPaths(loc ir.SourceLine, component string) Message {
	return errorf(ErrComponentMultipleKeyPaths, "ComponentMultipleKeyPaths", loc,
		"The Component '%s' has more than one key path. Only one child or the component itself may set KeyPath to 'yes'.",
		component)
}

// TooManySearchElements reports more than one search child.
func TooManySearchElements(loc ir.SourceLine, element string) Message {
	return errorf(ErrTooManySearchElements, "TooManySearchElements", loc,
		"The %s element may only contain one search element.", element)
}

// InsufficientVersion reports a source that requires a newer compiler.
func InsufficientVersion(loc ir.SourceLine, current, required string) Message {
	return errorf(ErrInsufficientVersion, "InsufficientVersion", loc,
		"The current compiler version, '%s', does not satisfy the version requirement of '%s' specified by the source file.",
		current, required)
}

// ExpectedElement reports a missing required child element.
func ExpectedElement(loc ir.SourceLine, element, child string) Message {
	return errorf(ErrExpectedElement, "ExpectedElement", loc,
		"A %s element must have a %s child element.", element, child)
}

// TooManyElements reports more than max children of one kind.
func TooManyElements(loc ir.SourceLine, element, child string, max int) Message {
	return errorf(ErrTooManyElements, "TooManyElements", loc,
		"The %s element contains more than %d %s child element(s).", element, max, child)
}

// ExpectedAttributeOrParent reports an attribute that is required outside a given parent.
func ExpectedAttributeOrParent(loc ir.SourceLine, element, attribute, parent string) Message {
	return errorf(ErrExpectedAttributeOrParent, "ExpectedAttributeOrParent", loc,
		"The %s/@%s attribute was not found; it is required when the element is not nested under a %s element.",
		element, attribute, parent)
}

// SchemaValidationFailed folds every schema violation into one message.
func SchemaValidationFailed(loc ir.SourceLine, summary string, count int) Message {
	return errorf(ErrSchemaValidationFailed, "SchemaValidationFailed", loc,
		"Schema validation failed with %d violation(s): %s", count, summary)
}

// IllegalAttributeValueInScope reports a value that the enclosing element forbids.
func IllegalAttributeValueInScope(loc ir.SourceLine, element, attribute, value, scope string) Message {
	return errorf(ErrIllegalValueInScope, "IllegalAttributeValueInScope", loc,
		"The %s/@%s attribute's value, '%s', cannot be used when the element is nested under %s.",
		element, attribute, value, scope)
}

// ExpectedAttributeOrElement reports that neither the attribute nor the child element is present.
func ExpectedAttributeOrElement(loc ir.SourceLine, element, attribute, child string) Message {
	return errorf(ErrExpectedAttributeOrElement, "ExpectedAttributeOrElement", loc,
		"The %s element requires either the %s attribute or a %s child element.", element, attribute, child)
}

// ExtensionFailure reports a panic raised by an extension callback.
func ExtensionFailure(loc ir.SourceLine, namespace string, err error) Message {
	return errorf(ErrExtensionFailure, "ExtensionFailure", loc,
		"The extension for namespace '%s' failed: %v", namespace, err)
}

// ConditionExpected reports a condition element with blank inner text.
func ConditionExpected(loc ir.SourceLine, element string) Message {
	return errorf(ErrConditionExpected, "ConditionExpected", loc,
		"The %s element's inner text cannot be an empty string or completely whitespace.", element)
}

// ============================================================================
// Warnings
// ============================================================================

// ImplicitComponentKeyPath warns that a component's key path was chosen implicitly.
func ImplicitComponentKeyPath(loc ir.SourceLine, component string) Message {
	return warningf(WarnImplicitComponentKeyPath, "ImplicitComponentKeyPath", loc,
		"The component '%s' does not have an explicit key path specified. If the ordering of the elements under the Component element changes, the key path will also change.",
		component)
}

// DeprecatedElement warns about an element that has a replacement.
func DeprecatedElement(loc ir.SourceLine, element, replacement string) Message {
	return warningf(WarnDeprecatedElement, "DeprecatedElement", loc,
		"The %s element has been deprecated. Use the %s element instead.", element, replacement)
}

// AdvertiseStateMismatch warns that an element and its parent disagree on advertising.
func AdvertiseStateMismatch(loc ir.SourceLine, element, advertise, parentAdvertise string) Message {
	return warningf(WarnAdvertiseStateMismatch, "AdvertiseStateMismatch", loc,
		"The %s element has Advertise='%s' but its parent is advertised '%s'. Rows follow the element's own value.",
		element, advertise, parentAdvertise)
}

// PropertyUseless warns about a property that produces no row.
func PropertyUseless(loc ir.SourceLine, property string) Message {
	return warningf(WarnPropertyUseless, "PropertyUseless", loc,
		"Property '%s' does not contain a Value attribute and is not marked as Admin, Secure, or Hidden. The Property element is being ignored.",
		property)
}

// UnsupportedCodepage warns about a codepage the database format cannot store.
func UnsupportedCodepage(loc ir.SourceLine, element, attribute string, codepage int) Message {
	return warningf(WarnUnsupportedCodepage, "UnsupportedCodepage", loc,
		"The %s/@%s codepage %d is not supported by the installer database format.", element, attribute, codepage)
}

// ============================================================================
// Verbose
// ============================================================================

// GeneratedIdentifier traces an identifier synthesized for an element.
func GeneratedIdentifier(loc ir.SourceLine, element, id string) Message {
	return newMessage(VerboseGeneratedIdentifier, "GeneratedIdentifier", SeverityVerbose, loc,
		"Generated identifier '%s' for %s element.", id, element)
}

// ValidationSkipped traces why schema validation did not run.
func ValidationSkipped(loc ir.SourceLine, reason string) Message {
	return newMessage(VerboseValidationSkipped, "ValidationSkipped", SeverityVerbose, loc,
		"Schema validation skipped: %s.", reason)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return strings.Join(quoted, ", ")
}
