package source

// FileID uniquely identifies a source file of the compilation.
type FileID uint32

// NoFileID marks synthesized nodes without a backing file.
const NoFileID FileID = 0
