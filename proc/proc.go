// Package proc implements the process/thread model (spec.md C8). No
// teacher proc package was retrieved beyond its go.mod (the pack's
// scheduler/process code lives entirely in files the retrieval pack
// didn't include), so this package follows spec.md 4.7's operation set
// directly, written in the style established by the packages it
// composes: nyxkernel/vm for the address space, nyxkernel/accnt and
// nyxkernel/tinfo for per-process/per-thread bookkeeping, and
// nyxkernel/klock for its locks.
package proc

import (
	"sync"

	"nyxkernel/accnt"
	"nyxkernel/defs"
	"nyxkernel/fd"
	"nyxkernel/mem"
	"nyxkernel/tinfo"
	"nyxkernel/vm"
)

// USER_CS/USER_DS/RFLAGS_IF are the register-frame constants spec.md 4.7
// names for create_thread's initial IRETQ frame.
const (
	USER_CS       = 0x1b
	USER_DS       = 0x23
	RFLAGS_IF     = 0x202
	KernelStackSz = 2 * mem.PGSIZE
	UserStackTop  = uint64(0x7ffffffff000)
	UserStackSz   = 8 * mem.PGSIZE
)

// Frame is the register frame create_thread initializes and
// assign_thread_to_cpu loads via the (simulated) IRETQ return path.
type Frame struct {
	Rip, Rsp, Rflags, Cs, Ss uint64
	Rdi                      int
	Cr3                      uint64
}

// Thread is one schedulable unit of execution within a Process.
type Thread struct {
	Tid   defs.Tid_t
	Name  string
	Proc  *Process
	Frame Frame
	Note  *tinfo.Tnote_t

	entry func(arg int)
	arg   int
	done  chan struct{}
}

// Process owns an address space, an fd table, and a slice of its
// threads.
type Process struct {
	mu sync.Mutex

	Pid     defs.Pid_t
	Name    string
	Parent  *Process
	Uid     uint32
	AS      *vm.AddrSpace
	PM      *mem.PhysMem
	Cwd     *fd.Cwd_t
	FDs     map[int]*fd.Fd_t
	nextFD  int
	Threads []*Thread
	Accnt   accnt.Accnt_t
	TI      tinfo.Threadinfo_t

	exited bool
}

// registry is the global process list spec.md 4.7 calls for
// create_proc to link new processes into.
type registry struct {
	mu      sync.Mutex
	procs   map[defs.Pid_t]*Process
	nextPid defs.Pid_t
	nextTid defs.Tid_t
}

var global = &registry{procs: make(map[defs.Pid_t]*Process), nextPid: 1, nextTid: 1}

// CreateProc allocates a process, attaches a fresh address space,
// creates an empty fd table, and links it into the global process
// list. A bare-metal kernel's new address space initially aliases the
// single kernel root's upper half so kernel code stays mapped after a
// CR3 switch; a hosted AddrSpace has no such shared kernel mapping to
// alias (there is exactly one PhysMem per test, not one systemwide
// kernel map), so this is the Open Question decision recorded in
// DESIGN.md: each process gets its own independent AddrSpace rooted at
// a fresh PML4, and the hosted model does not attempt to share kernel
// mappings across processes.
func CreateProc(name string, parent *Process, pm *mem.PhysMem) (*Process, error) {
	as, err := vm.NewAddrSpace(pm)
	if err != nil {
		return nil, err
	}
	global.mu.Lock()
	pid := global.nextPid
	global.nextPid++
	global.mu.Unlock()

	p := &Process{
		Pid:    pid,
		Name:   name,
		Parent: parent,
		AS:     as,
		PM:     pm,
		FDs:    make(map[int]*fd.Fd_t),
		nextFD: 0,
	}
	p.TI.Init()

	global.mu.Lock()
	global.procs[pid] = p
	global.mu.Unlock()
	return p, nil
}

// Lookup returns the process with the given pid, if it is still in the
// global process list.
func Lookup(pid defs.Pid_t) (*Process, bool) {
	global.mu.Lock()
	defer global.mu.Unlock()
	p, ok := global.procs[pid]
	return p, ok
}

// AddFd installs f in the process's fd table and returns its number.
func (p *Process) AddFd(f *fd.Fd_t) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.nextFD
	p.nextFD++
	p.FDs[n] = f
	return n
}

// GetFd returns the fd table entry for n, if open.
func (p *Process) GetFd(n int) (*fd.Fd_t, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.FDs[n]
	return f, ok
}

// CreateThread allocates a user stack, initializes the register frame
// per spec.md 4.7 (USER_CS/USER_DS, RFLAGS with IF set, rdi=arg,
// cr3=phys(address-space-root)), and links the thread onto the
// process's thread list. entry is invoked (in a goroutine, standing in
// for the IRETQ return path a real core takes) only once the scheduler
// assigns the thread to a core via AssignThreadToCPU. Frame.Rip is left
// 0: entry is a Go function with no user virtual address, and nothing
// in this package fills Rip in.
func (p *Process) CreateThread(name string, entry func(arg int), arg int) (*Thread, error) {
	stackRegion := &vm.Region{
		Start: UserStackTop - UserStackSz,
		Len:   UserStackSz,
		Perms: vm.FlagWrite,
		Mtype: vm.VANON,
	}
	p.AS.AddRegion(stackRegion)

	global.mu.Lock()
	tid := global.nextTid
	global.nextTid++
	global.mu.Unlock()

	note := &tinfo.Tnote_t{Alive: true}

	t := &Thread{
		Tid:  tid,
		Name: name,
		Proc: p,
		Note: note,
		Frame: Frame{
			Rip:    0, // set by caller once entry's virtual address is known
			Rsp:    UserStackTop,
			Rflags: RFLAGS_IF,
			Cs:     USER_CS,
			Ss:     USER_DS,
			Rdi:    arg,
			Cr3:    uint64(p.AS.Root().Addr()),
		},
		entry: entry,
		arg:   arg,
		done:  make(chan struct{}),
	}

	p.mu.Lock()
	p.Threads = append(p.Threads, t)
	p.mu.Unlock()

	p.TI.Lock()
	p.TI.Notes[tid] = note
	p.TI.Unlock()

	ready.enqueue(t)

	return t, nil
}

// Exit closes all fds, tears down threads, unlinks the process from
// the global list, and reclaims the address space last, matching
// spec.md 4.7's ordering.
func (p *Process) Exit() {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	fds := p.FDs
	p.FDs = nil
	threads := p.Threads
	p.Threads = nil
	p.mu.Unlock()

	for _, f := range fds {
		f.Fops.Close()
	}
	for _, t := range threads {
		t.Note.Lock()
		t.Note.Isdoomed = true
		t.Note.Unlock()
	}

	global.mu.Lock()
	delete(global.procs, p.Pid)
	global.mu.Unlock()

	p.AS.Free()
}
