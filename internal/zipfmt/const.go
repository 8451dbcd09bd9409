package zipfmt

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50

	FileHeaderLen      = 30 // + filename + extra
	DirectoryHeaderLen = 46 // + filename + extra + comment
	DirectoryEndLen    = 22 // + comment

	creatorUnix = 3

	// Version numbers.
	zipVersion20 = 20 // 2.0
	zipVersion62 = 62 // 6.2

	versionMadeBy = creatorUnix<<8 | zipVersion62
	versionNeeded = zipVersion20

	// flagUTF8 marks names and comments as UTF-8.
	flagUTF8 = 0x800

	// Extra header IDs.
	extTimeExtraID   = 0x5455 // Extended timestamp
	unixOwnerExtraID = 0x7875 // Info-ZIP Unix UID/GID
)
