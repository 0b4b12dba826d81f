package models

// Intent names. These travel across the NLU result, the capability map,
// the handler registry and the wire response, so they live in one place.
const (
	IntentFindNearby       = "find_nearby"
	IntentMenuRequest      = "menu_request"
	IntentCreateOrder      = "create_order"
	IntentConfirmOrder     = "confirm_order"
	IntentConfirmAddToCart = "confirm_add_to_cart"
	IntentSelectRestaurant = "select_restaurant"
	IntentShowMoreOptions  = "show_more_options"
	IntentCancelOrder      = "cancel_order"
	IntentRecommend        = "recommend"
	IntentChooseRestaurant = "choose_restaurant"
	IntentConfirmRest      = "confirm_restaurant"
	IntentNewOrder         = "new_order"
	IntentStartOver        = "start_over"
	IntentHelp             = "help"
	IntentSessionLocked    = "session_locked"
	IntentUnknown          = "unknown"

	IntentDialogBack   = "DIALOG_BACK"
	IntentDialogRepeat = "DIALOG_REPEAT"
	IntentDialogNext   = "DIALOG_NEXT"
	IntentDialogStop   = "DIALOG_STOP"
)

// NLU sources, in descending precedence. Guards downstream key off these,
// in particular the *_blocked suffixes and icm_fallback.
const (
	SourceRuleGuard       = "rule_guard"
	SourceLexicalOverride = "lexical_override"
	SourceRegexV2         = "regex_v2"
	SourceCatalog         = "catalog"
	SourceClassicLegacy   = "classic_legacy"
	SourceLLMHybrid       = "llm_hybrid"
	SourceContextLock     = "context_lock"
	SourceFallback        = "fallback"

	SourceICMFallback       = "icm_fallback"
	SourceCartBlocked       = "cart_mutation_blocked"
	SourceLegacyHardBlocked = "legacy_hard_blocked"
	SourceDialogNav         = "dialog_nav"
	SourceSessionLocked     = "session_guard"
	SourceBlockedSuffix     = "_blocked"
	SourceMenuScopedOrder   = "menu_scoped_upgrade"
	SourceAutoMenuUpgrade   = "auto_menu_upgrade"
	SourceConfirmGuard      = "confirm_guard"
	SourceFuzzyConfirm      = "fuzzy_confirm_guard"
	SourceEmptyOrderGuard   = "empty_order_downgrade"
)

// Expected dialog contexts. A context arms the next turn's short-circuit.
const (
	ContextSelectRestaurant = "select_restaurant"
	ContextConfirmOrder     = "confirm_order"
	ContextAskLocation      = "find_nearby_ask_location"
	ContextShowMoreOptions  = "show_more_options"
	ContextChooseRestaurant = "choose_restaurant"
	ContextConfirmRest      = "confirm_restaurant"
	ContextConfirmMenu      = "confirm_menu"
	ContextRestaurantMenu   = "restaurant_menu"
	ContextContinueOrder    = "continue_order"
	ContextMenuOrOrder      = "menu_or_order"
)

// Dialog focus values set by soft bridges.
const (
	FocusChoosingForMenu  = "CHOOSING_RESTAURANT_FOR_MENU"
	FocusChoosingForOrder = "CHOOSING_RESTAURANT_FOR_ORDER"
)

// Awaiting slot values.
const AwaitingLocation = "location"

// LegacyStatusCompleted is the pre-rotation completed marker. It is only
// honored by the zombie kill switch; new code closes sessions instead.
const LegacyStatusCompleted = "COMPLETED"

// Disambiguation outcomes.
const (
	OutcomeAddItem          = "ADD_ITEM"
	OutcomeItemNotFound     = "ITEM_NOT_FOUND"
	OutcomeDisambigRequired = "DISAMBIGUATION_REQUIRED"
)

// Ordering validation codes.
const (
	CodeEmptyCart        = "EMPTY_CART"
	CodeMixedRestaurants = "MIXED_RESTAURANTS"
	CodeRestaurantClosed = "RESTAURANT_CLOSED"
	CodeItemNotAvailable = "ITEM_NOT_AVAILABLE"
	CodeQuantityTooHigh  = "QUANTITY_TOO_HIGH"
	CodeMinOrderNotMet   = "MIN_ORDER_NOT_MET"
)

// Ordering warnings; these never block the reply.
const (
	WarnItemPriceIncreased  = "ITEM_PRICE_INCREASED"
	WarnDifferentRestaurant = "DIFFERENT_RESTAURANT_SUGGESTION"
)

// Wire-level error codes.
const (
	ErrCodeMissingInput  = "missing_input"
	ErrCodeBrakTekstu    = "brak_tekstu"
	ErrCodeInternalError = "internal_error"
	ErrCodeDBError       = "db_error"
)
