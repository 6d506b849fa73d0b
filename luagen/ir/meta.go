package ir

// Metamethod names accepted by the AddMeta* collector methods.
const (
	MetaAdd      = "__add"
	MetaSub      = "__sub"
	MetaMul      = "__mul"
	MetaDiv      = "__div"
	MetaMod      = "__mod"
	MetaPow      = "__pow"
	MetaUnm      = "__unm"
	MetaIDiv     = "__idiv"
	MetaBAnd     = "__band"
	MetaBOr      = "__bor"
	MetaBXor     = "__bxor"
	MetaBNot     = "__bnot"
	MetaShl      = "__shl"
	MetaShr      = "__shr"
	MetaConcat   = "__concat"
	MetaLen      = "__len"
	MetaEq       = "__eq"
	MetaLt       = "__lt"
	MetaLe       = "__le"
	MetaIndex    = "__index"
	MetaNewIndex = "__newindex"
	MetaCall     = "__call"
	MetaToString = "__tostring"
	MetaName     = "__name"
	MetaPairs    = "__pairs"
	MetaClose    = "__close"
	MetaGC       = "__gc"
	MetaMode     = "__mode"
)
