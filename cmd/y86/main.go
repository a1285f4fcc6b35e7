package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/minielf/y86/cpu"
	"github.com/minielf/y86/disassembler"
	"github.com/minielf/y86/elf"
	"github.com/minielf/y86/memory"
)

type options struct {
	help     bool
	header   bool
	segments bool
	membrief bool
	memfull  bool
	all      bool
	full     bool
	discode  bool
	disdata  bool
	exec     bool
	trace    bool

	path string
}

func usage() {
	fmt.Println("Usage: y86 <option(s)> mini-elf-file")
	fmt.Println(" Options are:")
	fmt.Println("  -h      Display usage")
	fmt.Println("  -H      Show the Mini-ELF header")
	fmt.Println("  -a      Show all with brief memory")
	fmt.Println("  -f      Show all with full memory")
	fmt.Println("  -s      Show the program headers")
	fmt.Println("  -m      Show the memory contents (brief)")
	fmt.Println("  -M      Show the memory contents (full)")
	fmt.Println("  -d      Disassemble code contents")
	fmt.Println("  -D      Disassemble data contents")
	fmt.Println("  -e      Execute program")
	fmt.Println("  -E      Execute program (trace mode)")
	fmt.Println("Options must not be repeated neither explicitly nor implicitly.")
}

func parseFlags() *options {
	opt := &options{}
	flag.BoolVarP(&opt.help, "help", "h", false, "display usage")
	flag.BoolVarP(&opt.header, "header", "H", false, "show the Mini-ELF header")
	flag.BoolVarP(&opt.segments, "segments", "s", false, "show the program headers")
	flag.BoolVarP(&opt.membrief, "membrief", "m", false, "show the memory contents (brief)")
	flag.BoolVarP(&opt.memfull, "memfull", "M", false, "show the memory contents (full)")
	flag.BoolVarP(&opt.all, "all", "a", false, "show all with brief memory")
	flag.BoolVarP(&opt.full, "full", "f", false, "show all with full memory")
	flag.BoolVarP(&opt.discode, "disas-code", "d", false, "disassemble code contents")
	flag.BoolVarP(&opt.disdata, "disas-data", "D", false, "disassemble data contents")
	flag.BoolVarP(&opt.exec, "exec", "e", false, "execute program")
	flag.BoolVarP(&opt.trace, "trace", "E", false, "execute program with per-instruction trace")
	flag.Usage = usage
	flag.Parse()

	if opt.help {
		usage()
		os.Exit(0)
	}
	// -a and -f imply other options; combining them with each other
	// or their constituents repeats an option implicitly.
	bad := opt.all && opt.full
	bad = bad || opt.all && (opt.header || opt.membrief || opt.segments)
	bad = bad || opt.full && (opt.header || opt.memfull || opt.segments)
	if opt.all {
		opt.header = true
		opt.membrief = true
		opt.segments = true
	}
	if opt.full {
		opt.header = true
		opt.memfull = true
		opt.segments = true
	}
	bad = bad || opt.membrief && opt.memfull
	if bad || flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	opt.path = flag.Arg(0)
	return opt
}

func main() {
	log.SetOutput(os.Stderr)
	if os.Getenv("Y86_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}
	opt := parseFlags()

	file, err := os.Open(opt.path)
	if err != nil {
		log.WithError(err).Fatal("cannot open mini-elf file")
	}
	defer file.Close()

	hdr, err := elf.ReadHeader(file)
	if err != nil {
		log.WithError(err).Fatal("failed to read Mini-ELF header")
	}
	if opt.header {
		fmt.Print(hdr.Dump())
		fmt.Print(hdr.Describe())
		fmt.Println()
	}

	mem := memory.New()
	phdrs := make([]elf.Phdr, 0, hdr.NumPhdr)
	for i := 0; i < int(hdr.NumPhdr); i++ {
		ph, err := elf.ReadPhdr(file, int64(hdr.PhdrStart)+int64(i)*elf.PhdrSize)
		if err != nil {
			log.WithError(err).WithField("phdr", i).Fatal("failed to read program header")
		}
		if err := elf.LoadSegment(file, mem, ph); err != nil {
			log.WithError(err).WithField("phdr", i).Fatal("failed to load segment")
		}
		phdrs = append(phdrs, *ph)
	}

	if opt.segments {
		fmt.Print(elf.DumpPhdrs(phdrs))
	}
	if opt.membrief {
		for _, ph := range phdrs {
			if ph.FileSize == 0 {
				continue
			}
			// Round down so rows start on a sixteen-byte boundary.
			start := uint64(ph.VirtAddr) &^ 15
			fmt.Print(mem.Dump(start, uint64(ph.VirtAddr)+uint64(ph.FileSize)))
			fmt.Println()
		}
	}
	if opt.memfull {
		fmt.Print(mem.Dump(0, memory.Size))
	}

	if opt.discode {
		fmt.Println("Disassembly of executable contents:")
		for i := range phdrs {
			if phdrs[i].Type != elf.TypeCode {
				continue
			}
			fmt.Print(disassembler.Code(mem, &phdrs[i], hdr))
			fmt.Println()
		}
	}
	if opt.disdata {
		fmt.Println("Disassembly of data contents:")
		for i := range phdrs {
			if phdrs[i].Type != elf.TypeData {
				continue
			}
			// Read-only data renders as strings, anything else as quads.
			if phdrs[i].Flags == elf.FlagR {
				fmt.Print(disassembler.Rodata(mem, &phdrs[i]))
			} else {
				fmt.Print(disassembler.Data(mem, &phdrs[i]))
			}
			fmt.Println()
		}
	}

	switch {
	case opt.trace:
		run(hdr, mem, true)
	case opt.exec:
		run(hdr, mem, false)
	}
}

// run interprets the loaded program from the entry point until the
// status leaves AOK. In trace mode every instruction is printed
// before it executes and the CPU is dumped after it, and the full
// memory image is dumped once the program stops.
func run(hdr *elf.Header, mem memory.Image, trace bool) {
	c := cpu.New(hdr.Entry)
	fmt.Printf("Entry execution point at 0x%04x\n", hdr.Entry)
	fmt.Print("Initial ")
	fmt.Print(c.Dump())

	count := 0
	for c.Stat == cpu.AOK {
		inst := cpu.Fetch(c, mem)
		if trace {
			fmt.Printf("Executing: %s\n", disassembler.Disassemble(inst))
		}
		valE, valA, cond := c.DecodeExecute(inst)
		if c.Stat == cpu.INS {
			fmt.Printf("Corrupt Instruction (opcode 0x%02x) at address 0x%04x\n", inst.Opcode, c.PC)
		}
		c.MemoryWbPC(mem, inst, valE, valA, cond)
		count++
		if c.PC >= memory.Size {
			c.Stat = cpu.ADR
			c.PC = cpu.BadPC
		}
		if trace {
			fmt.Print(postLabel(c.Stat))
			fmt.Print(c.Dump())
		}
	}

	if !trace {
		fmt.Print(postLabel(c.Stat))
		fmt.Print(c.Dump())
	}
	fmt.Printf("Total execution count: %d instructions\n\n", count)
	if trace {
		fmt.Print(mem.Dump(0, memory.Size))
	}
}

func postLabel(s cpu.Status) string {
	if s == cpu.INS {
		return "Post-Fetch "
	}
	return "Post-Exec "
}
