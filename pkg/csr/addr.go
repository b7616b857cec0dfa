package csr

// Recognized CSR addresses, per the RISC-V privileged specification. The
// bank enumerates each one by name and routes to a field-level getter or
// setter (spec.md §9 design note), rather than modeling a raw 4096-entry
// array.
const (
	addrSstatus  = 0x100
	addrSie      = 0x104
	addrStvec    = 0x105
	addrScounter = 0x106
	addrSenvcfg  = 0x10A
	addrSscratch = 0x140
	addrSepc     = 0x141
	addrScause   = 0x142
	addrStval    = 0x143
	addrSip      = 0x144
	addrSatp     = 0x180

	addrMstatus    = 0x300
	addrMisa       = 0x301
	addrMedeleg    = 0x302
	addrMideleg    = 0x303
	addrMie        = 0x304
	addrMtvec      = 0x305
	addrMcounteren = 0x306
	addrMenvcfg    = 0x30A
	addrMscratch   = 0x340
	addrMepc       = 0x341
	addrMcause     = 0x342
	addrMtval      = 0x343
	addrMip        = 0x344
	addrMcntinhbt  = 0x320

	addrCycle    = 0xC00
	addrTime     = 0xC01
	addrInstret  = 0xC02
	addrCycleh   = 0xC80
	addrTimeh    = 0xC81
	addrInstreth = 0xC82

	addrMcycle    = 0xB00
	addrMinstret  = 0xB02
	addrMcycleh   = 0xB80
	addrMinstreth = 0xB82

	addrMvendorid  = 0xF11
	addrMarchid    = 0xF12
	addrMimpid     = 0xF13
	addrMhartid    = 0xF14
	addrMconfigptr = 0xF15
)

// Counter enable bit positions, shared by mcounteren/scounteren/mcountinhibit.
const (
	counterCY = 1 << 0
	counterTM = 1 << 1
	counterIR = 1 << 2
)

// Delegation masks, per spec.md §3: medeleg excludes the M-mode ecall bit
// (bit 11); mideleg is restricted to the S-interrupt bits.
const (
	medelegMask = 0xcbeff
	midelegMask = 0x222
)

// mie/mip bit positions.
const (
	mipSSIP = 1 << 1
	mipMSIP = 1 << 3
	mipSTIP = 1 << 5
	mipMTIP = 1 << 7
	mipSEIP = 1 << 9
	mipMEIP = 1 << 11
)
